package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// FileStore implements ports.DraftStore using the local filesystem.
// It stores drafts as JSON files in a configured directory.
type FileStore struct {
	BasePath string
}

// NewFileStore creates a new FileStore with the given base path.
// If basePath is empty, it defaults to ".espalier/drafts".
func NewFileStore(basePath string) *FileStore {
	if basePath == "" {
		basePath = filepath.Join(".espalier", "drafts")
	}
	return &FileStore{BasePath: basePath}
}

// Save persists the draft to a JSON file.
func (f *FileStore) Save(ctx context.Context, draft *domain.DraftRecord) error {
	if draft == nil || draft.ID == "" {
		return fmt.Errorf("draft ID cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(f.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure draft directory: %w", err)
	}

	filePath := filepath.Join(f.BasePath, draft.ID+".json")

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write draft file: %w", err)
	}

	return nil
}

// Load retrieves a draft from its JSON file.
func (f *FileStore) Load(ctx context.Context, draftID string) (*domain.DraftRecord, error) {
	if draftID == "" {
		return nil, fmt.Errorf("draft ID cannot be empty")
	}

	filePath := filepath.Join(f.BasePath, draftID+".json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var draft domain.DraftRecord
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}

	return &draft, nil
}

// Delete removes the draft file.
func (f *FileStore) Delete(ctx context.Context, draftID string) error {
	if draftID == "" {
		return fmt.Errorf("draft ID cannot be empty")
	}

	filePath := filepath.Join(f.BasePath, draftID+".json")

	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete draft file: %w", err)
	}

	return nil
}

// List returns all stored draft IDs.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	var drafts []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			name := entry.Name()
			drafts = append(drafts, name[:len(name)-len(".json")])
		}
	}

	return drafts, nil
}
