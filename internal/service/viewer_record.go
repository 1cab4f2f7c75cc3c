package service

import (
	"context"
	"errors"

	"storygram/api/internal/ledger"
	"storygram/api/internal/models"
	"storygram/api/internal/repository"
)

// viewerStore is the slice of the story repository the ledger write
// path needs.
type viewerStore interface {
	GetByID(ctx context.Context, id string) (models.Story, error)
	UpdateViewers(ctx context.Context, id string, viewers []string, version int) error
}

// recordView appends the viewer to the story's ledger behind the
// versioned compare-and-set. A lost race re-reads and retries a bounded
// number of times; st is refreshed with the winning copy either way.
func recordView(ctx context.Context, stories viewerStore, st *models.Story, viewerID string) (bool, error) {
	for attempt := 0; attempt < viewRecordRetries; attempt++ {
		if !ledger.Record(st, viewerID) {
			return false, nil
		}
		err := stories.UpdateViewers(ctx, st.ID, st.Viewers, st.Version)
		if err == nil {
			st.Version++
			return true, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return false, err
		}
		fresh, err := stories.GetByID(ctx, st.ID)
		if err != nil {
			return false, err
		}
		*st = fresh
	}
	return false, repository.ErrVersionConflict
}
