package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   Kind = "income"
	Expense  Kind = "expense"
	Purchase Kind = "purchase"
)

const (
	Ascending Order = iota
	Descending
)

type (
	// Kind is the transaction category.
	Kind string

	// Order sorts records by OccurredAt; ties follow creation order in the same direction.
	Order int

	Transaction struct {
		ID         string // Assigned by the store on insert
		Kind       Kind
		Item       string
		Amount     int64 // Line total in whole currency units
		Quantity   int64
		OccurredAt time.Time
		OwnerID    string // Sender/conversation identifier
		Note       string
	}

	// Filter selects the records of one owner. Zero From/Until are unbounded.
	Filter struct {
		OwnerID string
		Kinds   []Kind
		From    time.Time // inclusive
		Until   time.Time // exclusive
		Order   Order
	}
)

const maxItemLen = 200

var (
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidQty    = errors.New("invalid quantity")
	ErrEmptyItem     = errors.New("empty item")
	ErrItemTooLong   = errors.New("item too long (max 200 characters)")
	ErrEmptyOwner    = errors.New("empty owner")
	ErrNotFound      = errors.New("transaction not found")
)

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	return []Kind{Income, Expense, Purchase}
}

func (k Kind) Valid() bool {
	switch k {
	case Income, Expense, Purchase:
		return true
	default:
		return false
	}
}

// Outgoing reports whether the kind reduces profit.
func (k Kind) Outgoing() bool {
	return k == Expense || k == Purchase
}

func (k Kind) String() string {
	return string(k)
}

// NormalizeItem turns the chat placeholder separator into spaces.
func NormalizeItem(raw string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, "-", " ")), " ")
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Item) == "" {
		return ErrEmptyItem
	}
	if len(t.Item) > maxItemLen {
		return ErrItemTooLong
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Quantity < 1 {
		return ErrInvalidQty
	}
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	return nil
}

// Matches reports whether t satisfies f, ignoring f.Order.
func (f Filter) Matches(t Transaction) bool {
	if t.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if t.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && t.OccurredAt.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && !t.OccurredAt.Before(f.Until) {
		return false
	}
	return true
}
