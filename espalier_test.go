package espalier_test

import (
	"context"
	"testing"
	"time"

	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/pkg/domain"
)

func onboardingDef() *domain.WizardDefinition {
	return &domain.WizardDefinition{
		ID:    "onboarding",
		Title: "Team Onboarding",
		Steps: []domain.StepDefinition{
			{
				ID:        "region",
				Prompt:    "Where do you deploy?",
				Predicate: `has("region")`,
				Inputs:    []domain.FieldPath{"region"},
			},
			{
				ID:       "sizing",
				Prompt:   "How many replicas?",
				Optional: true,
				Inputs:   []domain.FieldPath{"replicas"},
			},
		},
		Rules: []domain.DefaultRule{
			{Trigger: "region", Target: "replicas", Compute: `answer("region") == "us-east" ? 3 : 1`},
		},
	}
}

func TestFacade_Integration(t *testing.T) {
	engine, err := espalier.New(onboardingDef(), espalier.WithSaveDelay(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	ctx := context.Background()
	sess, err := engine.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if sess.StepIndex() != 0 {
		t.Errorf("Expected initial step 0, got %d", sess.StepIndex())
	}
	if sess.CanAdvance() {
		t.Error("First step should not be passable before an answer")
	}

	if err := sess.Set(ctx, "region", "us-east"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !sess.CanAdvance() {
		t.Error("First step should be passable after answering")
	}

	// The default rule should have filled replicas.
	if v, ok := sess.Answers().Get("replicas"); !ok || v != 3 {
		t.Errorf("Expected rule-derived replicas = 3, got %v", v)
	}

	moved, err := sess.Advance(ctx)
	if err != nil || !moved {
		t.Fatalf("Advance failed: moved=%v err=%v", moved, err)
	}
	if sess.CurrentStep().ID != "sizing" {
		t.Errorf("Expected step 'sizing', got %q", sess.CurrentStep().ID)
	}

	artifact, err := sess.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(artifact.Profiles) == 0 {
		t.Error("Expected at least one derived profile")
	}
	if artifact.WizardID != "onboarding" {
		t.Errorf("Expected artifact wizard ID 'onboarding', got %q", artifact.WizardID)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestFacade_Resume(t *testing.T) {
	engine, err := espalier.New(onboardingDef(), espalier.WithSaveDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	ctx := context.Background()
	sess, err := engine.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	draftID := sess.DraftID()

	if err := sess.Set(ctx, "region", "eu-west"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := sess.Advance(ctx); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	resumed, err := engine.ResumeSession(ctx, draftID)
	if err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	if v, _ := resumed.Answers().Get("region"); v != "eu-west" {
		t.Errorf("Expected resumed region 'eu-west', got %v", v)
	}
	if resumed.StepIndex() != 1 {
		t.Errorf("Expected resumed step 1, got %d", resumed.StepIndex())
	}

	// Undo history does not survive a restart: the seed snapshot is the
	// saved answer set.
	if resumed.History().CanUndo() {
		t.Error("Resumed session should start with empty undo history")
	}
}

func TestFacade_ResumeUnknownDraft(t *testing.T) {
	engine, err := espalier.New(onboardingDef())
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	_, err = engine.ResumeSession(context.Background(), "no-such-draft")
	if err == nil {
		t.Fatal("Expected error resuming unknown draft")
	}
}

func TestFacade_RejectsBadDefinition(t *testing.T) {
	def := onboardingDef()
	def.Rules = []domain.DefaultRule{
		{Trigger: "a", Target: "b", Compute: `1`},
		{Trigger: "b", Target: "a", Compute: `2`},
	}

	if _, err := espalier.New(def); err == nil {
		t.Fatal("Expected cyclic rules to fail compilation")
	}
}
