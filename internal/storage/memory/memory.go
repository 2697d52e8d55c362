package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"warung/internal/core"
)

type entry struct {
	seq int64
	tx  core.Transaction
}

// Store keeps transactions in process memory. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	seq   int64
	items []entry
}

func New() *Store {
	return &Store{}
}

// Insert stores the transaction under a fresh uuid.
func (s *Store) Insert(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.ID = uuid.NewString()
	s.items = append(s.items, entry{seq: s.seq, tx: t})
	return t.ID, nil
}

// FindMany returns matching transactions sorted by OccurredAt in f.Order.
func (s *Store) FindMany(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	matched := make([]entry, 0, len(s.items))
	for _, e := range s.items {
		if f.Matches(e.tx) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.tx.OccurredAt.Equal(b.tx.OccurredAt) {
			if f.Order == core.Descending {
				return a.tx.OccurredAt.After(b.tx.OccurredAt)
			}
			return a.tx.OccurredAt.Before(b.tx.OccurredAt)
		}
		if f.Order == core.Descending {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	out := make([]core.Transaction, len(matched))
	for i, e := range matched {
		out[i] = e.tx
	}
	return out, nil
}

// FindLatest returns the first transaction of FindMany, or core.ErrNotFound.
func (s *Store) FindLatest(ctx context.Context, f core.Filter) (core.Transaction, error) {
	txs, err := s.FindMany(ctx, f)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return txs[0], nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.tx.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}
