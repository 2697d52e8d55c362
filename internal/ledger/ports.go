package ledger

import (
	"context"

	"warung/internal/core"
)

// Ports for outbound adapters.
type (
	// Store persists transaction records. Implementations must honor
	// Filter.Order and return core.ErrNotFound from FindLatest and
	// DeleteByID when nothing matches.
	Store interface {
		Insert(ctx context.Context, t core.Transaction) (id string, err error)
		FindMany(ctx context.Context, f core.Filter) ([]core.Transaction, error)
		FindLatest(ctx context.Context, f core.Filter) (core.Transaction, error)
		DeleteByID(ctx context.Context, id string) error
	}

	// EventPublisher receives a notification after every successful write.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, ev core.TransactionEvent) error
	}
)
