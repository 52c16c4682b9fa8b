package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// RunDraftStoreContract runs a suite of tests to verify that a DraftStore
// implementation adheres to the defined interface contract.
func RunDraftStoreContract(t *testing.T, store DraftStore) {
	ctx := context.Background()
	draftID := "contract-test-draft-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		draft := &domain.DraftRecord{
			ID:       draftID,
			WizardID: "onboarding",
			Answers:  domain.AnswerSet{"region": "us-east", "replicas": 3},
			Unsure:   map[string]bool{"step-sizing": true},
			SavedAt:  time.Now().UTC(),
		}

		err := store.Save(ctx, draft)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, draftID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, draft.WizardID, loaded.WizardID)
		assert.Equal(t, "us-east", loaded.Answers["region"])
		assert.True(t, loaded.Unsure["step-sizing"])
		// JSON persistence often converts int to float64; just verify presence.
		assert.NotNil(t, loaded.Answers["replicas"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+draftID)
		assert.ErrorIs(t, err, domain.ErrDraftNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, &domain.DraftRecord{ID: draftID, WizardID: "onboarding"})
		require.NoError(t, err)

		err = store.Delete(ctx, draftID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, draftID)
		assert.ErrorIs(t, err, domain.ErrDraftNotFound, "Load after Delete should return ErrDraftNotFound")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		// Idempotent.
		err := store.Delete(ctx, "ghost-"+draftID)
		assert.NoError(t, err)
	})

	t.Run("List", func(t *testing.T) {
		id1 := draftID + "-1"
		id2 := draftID + "-2"
		_ = store.Save(ctx, &domain.DraftRecord{ID: id1, WizardID: "onboarding"})
		_ = store.Save(ctx, &domain.DraftRecord{ID: id2, WizardID: "onboarding"})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		drafts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, drafts, id1)
		assert.Contains(t, drafts, id2)
	})
}
