package ports

import (
	"context"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// DraftStore defines the interface for persisting wizard drafts. This
// enables resumable sessions ("Stop & Resume") across restarts.
//
// Persistence is best-effort from the engine's point of view: the in-memory
// answer set stays authoritative for the session and write failures never
// block the user.
type DraftStore interface {
	// Save persists the draft, overwriting any previous record with the
	// same ID.
	Save(ctx context.Context, draft *domain.DraftRecord) error

	// Load retrieves a draft by ID.
	// Returns domain.ErrDraftNotFound if the draft does not exist.
	Load(ctx context.Context, draftID string) (*domain.DraftRecord, error)

	// Delete removes the draft. Deleting an absent draft is not an error.
	Delete(ctx context.Context, draftID string) error

	// List returns the IDs of all stored drafts.
	List(ctx context.Context) ([]string, error)
}
