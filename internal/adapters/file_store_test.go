package adapters_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/verdantlabs/espalier/internal/adapters"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/ports"
)

// Ensure FileStore implements DraftStore
var _ ports.DraftStore = (*adapters.FileStore)(nil)

func TestFileStore_Contract(t *testing.T) {
	tempDir := t.TempDir()
	store := adapters.NewFileStore(tempDir)

	ports.RunDraftStoreContract(t, store)
}

func TestFileStore_OnDisk(t *testing.T) {
	tempDir := t.TempDir()
	store := adapters.NewFileStore(tempDir)
	ctx := context.Background()

	t.Run("SaveCreatesJSONFile", func(t *testing.T) {
		draft := &domain.DraftRecord{
			ID:       "draft-1",
			WizardID: "onboarding",
			Answers:  domain.AnswerSet{"foo": "bar", "count": 42},
		}

		if err := store.Save(ctx, draft); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		path := filepath.Join(tempDir, "draft-1.json")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Fatalf("expected draft file at %s", path)
		}

		loaded, err := store.Load(ctx, "draft-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Answers["foo"] != "bar" {
			t.Errorf("expected Answers['foo'] = 'bar', got %v", loaded.Answers["foo"])
		}
		// JSON unmarshal numbers as float64 by default; loose check is fine here.
		if val, ok := loaded.Answers["count"].(float64); !ok || val != 42 {
			t.Errorf("expected Answers['count'] = 42, got %v (%T)", loaded.Answers["count"], loaded.Answers["count"])
		}
	})

	t.Run("DeleteRemovesFile", func(t *testing.T) {
		if err := store.Save(ctx, &domain.DraftRecord{ID: "draft-gone", WizardID: "onboarding"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := store.Delete(ctx, "draft-gone"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		path := filepath.Join(tempDir, "draft-gone.json")
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file should not exist after delete")
		}
	})

	t.Run("ListIgnoresGarbage", func(t *testing.T) {
		listDir := t.TempDir()
		listStore := adapters.NewFileStore(listDir)

		ids := []string{"d1", "d2", "d3"}
		for _, id := range ids {
			if err := listStore.Save(ctx, &domain.DraftRecord{ID: id, WizardID: "onboarding"}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		garbagePath := filepath.Join(listDir, "garbage.txt")
		if err := os.WriteFile(garbagePath, []byte("garbage"), 0644); err != nil {
			t.Fatalf("failed to create garbage file: %v", err)
		}

		list, err := listStore.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != len(ids) {
			t.Errorf("expected %d drafts, got %d", len(ids), len(list))
		}

		mapped := make(map[string]bool)
		for _, id := range list {
			mapped[id] = true
		}
		for _, id := range ids {
			if !mapped[id] {
				t.Errorf("expected draft %s in list", id)
			}
		}
	})
}
