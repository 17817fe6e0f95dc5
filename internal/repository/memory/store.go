// Package memory provides an in-memory implementation of every repository
// port, used for local development and behavioral tests.
//
// One mutex serializes all access. WithTx holds it for the whole callback and
// restores a snapshot of the maps when the callback fails, so a failed unit
// leaves no partial writes behind.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/port"
)

type txKey struct{}

type mappingKey struct {
	tenant uuid.UUID
	role   domain.AccountRole
}

type sequenceKey struct {
	tenant uuid.UUID
	scope  string
}

type state struct {
	accounts     map[uuid.UUID]domain.Account
	mappings     map[mappingKey]domain.AccountMapping
	sequences    map[sequenceKey]int64
	transactions map[uuid.UUID]domain.Transaction
	invoices     map[uuid.UUID]domain.Invoice
	payments     map[uuid.UUID]domain.InvoicePayment
	schedules    map[uuid.UUID]domain.RecurringSchedule
	occurrences  map[uuid.UUID]domain.ScheduleOccurrence
	bankAccounts map[uuid.UUID]domain.BankAccount
	bankTxns     map[uuid.UUID]domain.BankTransaction
}

func newState() state {
	return state{
		accounts:     make(map[uuid.UUID]domain.Account),
		mappings:     make(map[mappingKey]domain.AccountMapping),
		sequences:    make(map[sequenceKey]int64),
		transactions: make(map[uuid.UUID]domain.Transaction),
		invoices:     make(map[uuid.UUID]domain.Invoice),
		payments:     make(map[uuid.UUID]domain.InvoicePayment),
		schedules:    make(map[uuid.UUID]domain.RecurringSchedule),
		occurrences:  make(map[uuid.UUID]domain.ScheduleOccurrence),
		bankAccounts: make(map[uuid.UUID]domain.BankAccount),
		bankTxns:     make(map[uuid.UUID]domain.BankTransaction),
	}
}

// clone copies the maps. Stored values never share mutable slices with
// callers, so a shallow map copy is a full snapshot.
func (s state) clone() state {
	return state{
		accounts:     maps.Clone(s.accounts),
		mappings:     maps.Clone(s.mappings),
		sequences:    maps.Clone(s.sequences),
		transactions: maps.Clone(s.transactions),
		invoices:     maps.Clone(s.invoices),
		payments:     maps.Clone(s.payments),
		schedules:    maps.Clone(s.schedules),
		occurrences:  maps.Clone(s.occurrences),
		bankAccounts: maps.Clone(s.bankAccounts),
		bankTxns:     maps.Clone(s.bankTxns),
	}
}

// Store holds all tenants' data.
type Store struct {
	mu sync.Mutex
	st state
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = newState()
	s.mu.Unlock()
}

// lock acquires the store unless ctx already runs inside WithTx, which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx implements port.TxManager.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, s))
}

// Accounts returns the AccountRepository view.
func (s *Store) Accounts() port.AccountRepository { return accountRepo{s} }

// Mappings returns the AccountMappingRepository view.
func (s *Store) Mappings() port.AccountMappingRepository { return mappingRepo{s} }

// Sequences returns the SequenceRepository view.
func (s *Store) Sequences() port.SequenceRepository { return sequenceRepo{s} }

// Transactions returns the TransactionRepository view.
func (s *Store) Transactions() port.TransactionRepository { return transactionRepo{s} }

// Invoices returns the InvoiceRepository view.
func (s *Store) Invoices() port.InvoiceRepository { return invoiceRepo{s} }

// Schedules returns the ScheduleRepository view.
func (s *Store) Schedules() port.ScheduleRepository { return scheduleRepo{s} }

// Bank returns the BankRepository view.
func (s *Store) Bank() port.BankRepository { return bankRepo{s} }

// page applies offset/limit to an already sorted slice.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
