package driving

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// TargetService manages export targets.
type TargetService interface {
	// Add validates and stores a new target. An ID is assigned if empty.
	Add(ctx context.Context, target domain.Target) (*domain.Target, error)

	// Get retrieves a target by ID.
	Get(ctx context.Context, id string) (*domain.Target, error)

	// List returns all targets.
	List(ctx context.Context) ([]domain.Target, error)

	// Remove deletes a target.
	Remove(ctx context.Context, id string) error
}
