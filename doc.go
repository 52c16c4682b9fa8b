/*
Package espalier is a guided data-collection engine for building multi-step
wizards: resumable flows that gather structured answers, validate them step
by step, and hand the result off to a downstream profile compiler.

It separates the wizard definition (steps, predicates, default rules) from
the run state (answers, history, step position) and from side-effects
(persistence, derivation). This hexagonal layout lets the engine be embedded
in any interface: CLI, HTTP server, or agent tooling.

# Concept

A wizard is an ordered list of steps, each declaring a prompt, an optional
validation predicate, and the answer paths it reads. A session walks the
steps, committing every answer change as an immutable snapshot so the user
can undo and redo freely. Default rules propagate suggested values between
answers without ever clobbering user input, and a debounced saver persists
the draft after each burst of edits.

# Key Features

  - Copy-on-write answer history: undo rewinds data, never navigation.
  - Predicate gating: steps compile expr predicates once and cache results.
  - Reactive defaults: trigger/target rules with static cycle rejection.
  - Stop & Resume: drafts persist through pluggable stores (file, Redis).
  - Derivation handoff: remote compilation with a local fallback path.

# Usage

Compile a definition into an Engine, then open sessions against it.

	package main

	import (
		"context"
		"log"

		"github.com/verdantlabs/espalier"
		"github.com/verdantlabs/espalier/pkg/domain"
	)

	func main() {
		def := &domain.WizardDefinition{
			ID: "onboarding",
			Steps: []domain.StepDefinition{
				{ID: "region", Prompt: "Where do you deploy?", Predicate: `has("region")`, Inputs: []domain.FieldPath{"region"}},
				{ID: "sizing", Prompt: "How many replicas?", Optional: true},
			},
		}

		eng, err := espalier.New(def)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		sess, err := eng.NewSession(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer sess.Close(ctx)

		_ = sess.Set(ctx, "region", "us-east")
		if sess.CanAdvance() {
			_, _ = sess.Advance(ctx)
		}

		artifact, err := sess.Complete(ctx)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("derived %d profiles", len(artifact.Profiles))
	}

For persistence across restarts, pass espalier.WithStore with a file or
Redis adapter; the session saver debounces writes automatically.
*/
package espalier
