// Package sheets mirrors ledger events into a spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"warung/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) error
	}

	TransactionDeleter interface {
		// DeleteTransaction removes the row for id. A missing row is not an error.
		DeleteTransaction(ctx context.Context, id string) error
	}

	Mirror interface {
		TransactionWriter
		TransactionDeleter
	}
)

// Apply routes one ledger event to the matching mirror operation.
func Apply(ctx context.Context, m Mirror, ev core.TransactionEvent) error {
	switch ev.Type {
	case core.EventRecorded:
		return m.AppendTransaction(ctx, ev.Transaction)
	case core.EventDeleted:
		return m.DeleteTransaction(ctx, ev.Transaction.ID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}
