package driven

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// AccountStore persists accounts together with their tokens.
type AccountStore interface {
	// Save stores an account. Creates if new, updates if exists.
	Save(ctx context.Context, account domain.Account) error

	// Get retrieves an account by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// List returns all accounts.
	List(ctx context.Context) ([]domain.Account, error)

	// Delete removes an account by ID.
	Delete(ctx context.Context, id string) error
}

// TargetStore persists export targets.
type TargetStore interface {
	// Save stores a target. Creates if new, updates if exists.
	Save(ctx context.Context, target domain.Target) error

	// Get retrieves a target by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Target, error)

	// List returns all targets.
	List(ctx context.Context) ([]domain.Target, error)

	// ListByAccount returns the targets bound to an account.
	ListByAccount(ctx context.Context, accountID string) ([]domain.Target, error)

	// Delete removes a target by ID.
	Delete(ctx context.Context, id string) error
}

// ExportHistoryStore records export outcomes. Records are append-only.
type ExportHistoryStore interface {
	// Append stores a new record.
	Append(ctx context.Context, record domain.ExportRecord) error

	// ListByCapture returns the records of one capture, newest first.
	ListByCapture(ctx context.Context, captureID string) ([]domain.ExportRecord, error)

	// List returns up to limit records, newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.ExportRecord, error)
}
