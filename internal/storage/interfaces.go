package storage

import (
	"context"

	"trade-edge-lab/internal/domain"
)

// ResultStore holds the single published result bundle.
// Publishing replaces the previous bundle; readers never see a partial one.
type ResultStore interface {
	// Publish replaces the current bundle. Returns ErrStaleVersion if b was computed
	// from older inputs than the current bundle, ErrInvalidInput if b is nil.
	Publish(ctx context.Context, b *domain.ResultBundle) error

	// Current returns the published bundle. Returns ErrNotFound if none.
	Current(ctx context.Context) (*domain.ResultBundle, error)

	// Get returns the published bundle if its key equals key. Returns ErrNotFound otherwise.
	Get(ctx context.Context, key domain.ResultKey) (*domain.ResultBundle, error)

	// Invalidate drops the published bundle.
	Invalidate(ctx context.Context) error
}
