/*
Package runner provides the interaction loop between a wizard session and
line-based IO.

The Runner renders the current step as markdown, reads one command per
line, and applies it to the session. Assignments ("region = us-east")
commit answers, colon commands (":undo", ":back") navigate, and an empty
line advances, or completes the wizard on the last step.

Hosts customize behavior through the IOHandler strategy and the Keymap:
Bind returns an unbind handle, so a host can claim a command for the
lifetime of a screen and release exactly that binding afterwards.
*/
package runner
