/*
Package ports defines the interfaces between the Espalier core and the
outside world (Hexagonal Architecture).

Adapters implement these ports to provide persistence (DraftStore),
derivation (Compiler) and downstream handoff (ArtifactConsumer), keeping the
engine itself free of infrastructure concerns.
*/
package ports
