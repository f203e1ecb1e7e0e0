// Package memory is a process-local storage driver. It backs the "memory"
// database driver for local runs and the service-level tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"nfc-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errForeignTx = errors.New("transaction does not belong to this store")
	errNoSQL     = errors.New("memory store does not execute SQL")
)

// Store keeps every table in memory. A transaction holds the store lock
// from Begin until Commit or Rollback, so transactions never interleave and
// a lock taken "FOR UPDATE" is simply the store lock.
type Store struct {
	mu           sync.Mutex
	wallets      map[uuid.UUID]domain.Wallet
	ledger       []domain.LedgerEntry
	transactions []domain.Transaction
	cards        map[uuid.UUID]domain.Card
	requests     map[uuid.UUID]domain.MerchantRequest
	idempotency  map[string]domain.IdempotencyLog
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		wallets:     make(map[uuid.UUID]domain.Wallet),
		cards:       make(map[uuid.UUID]domain.Card),
		requests:    make(map[uuid.UUID]domain.MerchantRequest),
		idempotency: make(map[string]domain.IdempotencyLog),
	}
}

// Begin implements ports.DBTransactor. It blocks until no other
// transaction is open.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	return &memTx{store: s}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// use returns the open transaction behind tx. Callers already hold the lock
// through it.
func (s *Store) use(tx pgx.Tx) (*memTx, error) {
	t, ok := tx.(*memTx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// memTx records an undo step for every write and replays them backwards
// on rollback.
type memTx struct {
	store  *Store
	undo   []func()
	closed bool
}

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit(_ context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.closed = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Begin(_ context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}

func (t *memTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errNoSQL
}

func (t *memTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }

func (t *memTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errNoSQL
}

func (t *memTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errNoSQL
}

func (t *memTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errNoSQL
}

func (t *memTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return errRow{}
}

func (t *memTx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(_ ...any) error { return errNoSQL }

// putWithUndo writes m[k] = v and restores the previous state on rollback.
func putWithUndo[K comparable, V any](t *memTx, m map[K]V, k K, v V) {
	prev, had := m[k]
	m[k] = v
	t.onRollback(func() {
		if had {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// page slices items for a 1-based page. Out-of-range pages are empty.
func page[T any](items []T, pageNum, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortCardsOldestFirst(cards []domain.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].ID.String() < cards[j].ID.String()
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
}
