// Package highlights maintains named, ordered story collections. The
// invariant: within one (owner, name, cover) group the order values are a
// dense permutation of 1..N after every mutation.
package highlights

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storygram/api/internal/ids"
	"storygram/api/internal/models"
)

var (
	ErrNotFound      = errors.New("highlight not found")
	ErrGroupMissing  = errors.New("highlight group does not exist")
	ErrDuplicateName = errors.New("highlight with this name already exists")
	// ErrOrderCorrupted reports a gap or duplicate in a group's order
	// sequence. That is never a valid transient state, always corruption.
	ErrOrderCorrupted = errors.New("highlight order sequence corrupted")
)

// Store is the relational slice the manager mutates. Callers that need
// multi-step atomicity hand the manager a transaction-bound Store.
type Store interface {
	// Group returns a group's members ordered by ascending order value.
	Group(ctx context.Context, key models.HighlightGroupKey) ([]models.Highlight, error)
	// GroupByName matches on owner and name only, ignoring the cover key.
	GroupByName(ctx context.Context, ownerID, name string) ([]models.Highlight, error)
	ByStory(ctx context.Context, storyID string) (models.Highlight, error)
	ByID(ctx context.Context, ownerID, highlightID string) (models.Highlight, error)
	Insert(ctx context.Context, h models.Highlight) error
	Delete(ctx context.Context, highlightID string) error
	// ShiftDown decrements the order of every group member above the
	// given position.
	ShiftDown(ctx context.Context, key models.HighlightGroupKey, above int) error
	SetOrder(ctx context.Context, highlightID string, order int) error
	Rekey(ctx context.Context, key models.HighlightGroupKey, newName, newCoverImageKey string) error
	SetArchived(ctx context.Context, key models.HighlightGroupKey, archived bool) error
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create seeds a brand-new group, assigning orders 1..len(storyIDs) in
// the given sequence. A group name may exist only once per owner.
func (m *Manager) Create(ctx context.Context, key models.HighlightGroupKey, storyIDs []string, now time.Time) ([]models.Highlight, error) {
	existing, err := m.store.GroupByName(ctx, key.OwnerID, key.Name)
	if err != nil {
		return nil, fmt.Errorf("lookup group: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateName
	}

	created := make([]models.Highlight, 0, len(storyIDs))
	for i, storyID := range storyIDs {
		h := models.Highlight{
			ID:            ids.New(),
			StoryID:       storyID,
			OwnerID:       key.OwnerID,
			Name:          key.Name,
			CoverImageKey: key.CoverImageKey,
			Order:         i + 1,
			CreatedAt:     now,
		}
		if err := m.store.Insert(ctx, h); err != nil {
			return nil, fmt.Errorf("insert highlight: %w", err)
		}
		created = append(created, h)
	}
	return created, nil
}

// Append adds one story to the end of an existing group. Appending to a
// group that does not exist is rejected; Create is the distinct seeding
// operation.
func (m *Manager) Append(ctx context.Context, key models.HighlightGroupKey, storyID string, now time.Time) (models.Highlight, error) {
	members, err := m.store.GroupByName(ctx, key.OwnerID, key.Name)
	if err != nil {
		return models.Highlight{}, fmt.Errorf("lookup group: %w", err)
	}
	if len(members) == 0 {
		return models.Highlight{}, ErrGroupMissing
	}

	max := 0
	for _, member := range members {
		if member.Order > max {
			max = member.Order
		}
	}

	h := models.Highlight{
		ID:            ids.New(),
		StoryID:       storyID,
		OwnerID:       key.OwnerID,
		Name:          key.Name,
		CoverImageKey: key.CoverImageKey,
		Order:         max + 1,
		CreatedAt:     now,
	}
	if err := m.store.Insert(ctx, h); err != nil {
		return models.Highlight{}, fmt.Errorf("insert highlight: %w", err)
	}
	return h, nil
}

// Remove deletes one member and closes the gap it leaves. The delete and
// the renumber belong to one atomic step; run the manager on a
// transaction-bound store.
func (m *Manager) Remove(ctx context.Context, h models.Highlight) error {
	if err := m.store.Delete(ctx, h.ID); err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	key := models.HighlightGroupKey{OwnerID: h.OwnerID, Name: h.Name, CoverImageKey: h.CoverImageKey}
	if err := m.store.ShiftDown(ctx, key, h.Order); err != nil {
		return fmt.Errorf("renumber group: %w", err)
	}
	return nil
}

// Rename rewrites a whole group's name and cover key in one batch.
// Order values are untouched.
func (m *Manager) Rename(ctx context.Context, key models.HighlightGroupKey, newName, newCoverImageKey string) error {
	if err := m.store.Rekey(ctx, key, newName, newCoverImageKey); err != nil {
		return fmt.Errorf("rekey group: %w", err)
	}
	return nil
}

func (m *Manager) ArchiveGroup(ctx context.Context, key models.HighlightGroupKey) error {
	return m.store.SetArchived(ctx, key, true)
}

func (m *Manager) UnarchiveGroup(ctx context.Context, key models.HighlightGroupKey) error {
	return m.store.SetArchived(ctx, key, false)
}

// VerifyDense checks the density invariant: sorted orders must equal
// exactly 1..N.
func VerifyDense(members []models.Highlight) error {
	orders := make([]int, len(members))
	for i, h := range members {
		orders[i] = h.Order
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i+1 {
			return fmt.Errorf("%w: got %v", ErrOrderCorrupted, orders)
		}
	}
	return nil
}

// Repair renumbers a corrupted group to 1..N, preserving the relative
// order of the surviving members.
func (m *Manager) Repair(ctx context.Context, key models.HighlightGroupKey) error {
	members, err := m.store.Group(ctx, key)
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	for i, h := range members {
		if h.Order == i+1 {
			continue
		}
		if err := m.store.SetOrder(ctx, h.ID, i+1); err != nil {
			return fmt.Errorf("set order: %w", err)
		}
	}
	return nil
}
