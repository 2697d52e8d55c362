// Package ledger implements the bookkeeping operations behind each chat command.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warung/internal/core"
)

// ErrNothingToDelete is returned by DeleteLast when the owner has no records.
var ErrNothingToDelete = errors.New("nothing to delete")

// Service records transactions and computes aggregates for one owner at a time.
type Service struct {
	store  Store
	events EventPublisher
	loc    *time.Location
	now    func() time.Time
}

// NewService wires a Service. events may be nil; loc defaults to time.Local.
func NewService(store Store, events EventPublisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		events: events,
		loc:    loc,
		now:    time.Now,
	}
}

// Location returns the zone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// RecordIncome stores a sale of qty units at unitPrice each.
func (s *Service) RecordIncome(ctx context.Context, owner, item string, unitPrice, qty int64) (core.Transaction, error) {
	total, ok := core.MulAmount(unitPrice, qty)
	if !ok {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	return s.record(ctx, core.Transaction{
		Kind:     core.Income,
		Item:     item,
		Amount:   total,
		Quantity: qty,
		OwnerID:  owner,
		Note:     "Penjualan " + item,
	})
}

// RecordExpense stores an operating expense such as gas or electricity.
func (s *Service) RecordExpense(ctx context.Context, owner, item string, amount int64) (core.Transaction, error) {
	return s.record(ctx, core.Transaction{
		Kind:     core.Expense,
		Item:     item,
		Amount:   amount,
		Quantity: 1,
		OwnerID:  owner,
		Note:     "Pengeluaran " + item,
	})
}

// RecordPurchase stores a stock purchase.
func (s *Service) RecordPurchase(ctx context.Context, owner, item string, amount int64) (core.Transaction, error) {
	return s.record(ctx, core.Transaction{
		Kind:     core.Purchase,
		Item:     item,
		Amount:   amount,
		Quantity: 1,
		OwnerID:  owner,
		Note:     "Belanja " + item,
	})
}

func (s *Service) record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.OccurredAt = s.now().In(s.loc)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	t.ID = id

	s.publish(ctx, core.EventRecorded, t)
	return t, nil
}

// DeleteLast removes the owner's most recent record and returns it.
func (s *Service) DeleteLast(ctx context.Context, owner string) (core.Transaction, error) {
	last, err := s.store.FindLatest(ctx, core.Filter{OwnerID: owner, Order: core.Descending})
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, ErrNothingToDelete
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find latest: %w", err)
	}

	if err := s.store.DeleteByID(ctx, last.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, ErrNothingToDelete
		}
		return core.Transaction{}, fmt.Errorf("delete %s: %w", last.ID, err)
	}

	s.publish(ctx, core.EventDeleted, last)
	return last, nil
}

// ProfitToday sums today's income against today's expenses and purchases.
func (s *Service) ProfitToday(ctx context.Context, owner string) (ProfitSummary, error) {
	now := s.now().In(s.loc)
	from, until := core.DayWindow(now)

	txs, err := s.store.FindMany(ctx, core.Filter{OwnerID: owner, From: from, Until: until})
	if err != nil {
		return ProfitSummary{}, fmt.Errorf("find today's transactions: %w", err)
	}

	sum := ProfitSummary{Date: now}
	for _, t := range txs {
		if t.Kind.Outgoing() {
			sum.OutgoingTotal += t.Amount
			sum.OutgoingCount++
		} else {
			sum.IncomeTotal += t.Amount
			sum.IncomeCount++
		}
	}
	return sum, nil
}

// Report aggregates every record in the period's window, newest first.
func (s *Service) Report(ctx context.Context, owner string, period core.Period) (Report, error) {
	now := s.now().In(s.loc)
	rep := Report{Period: period, From: period.Start(now), To: now}

	txs, err := s.store.FindMany(ctx, core.Filter{OwnerID: owner, From: rep.From, Order: core.Descending})
	if err != nil {
		return Report{}, fmt.Errorf("find %s transactions: %w", period, err)
	}

	rep.Count = len(txs)
	index := make(map[string]int)
	for _, t := range txs {
		if t.Kind.Outgoing() {
			rep.OutgoingTotal += t.Amount
			continue
		}
		rep.IncomeTotal += t.Amount

		i, seen := index[t.Item]
		if !seen {
			i = len(rep.Items)
			index[t.Item] = i
			rep.Items = append(rep.Items, ItemSales{Item: t.Item})
		}
		rep.Items[i].Quantity += t.Quantity
		rep.Items[i].Total += t.Amount
	}
	return rep, nil
}

func (s *Service) publish(ctx context.Context, typ core.EventType, t core.Transaction) {
	if s.events == nil {
		return
	}
	ev := core.TransactionEvent{Type: typ, Transaction: t, At: s.now()}
	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		// Don't fail the command - the record is already stored
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", typ,
			"id", t.ID,
			"error", err)
	}
}
