package memory

import (
	"context"
	"testing"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWallet(owner uuid.UUID, balance string) *domain.Wallet {
	now := time.Now().UTC()
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   owner,
		Currency:  "USD",
		Balance:   decimal.RequireFromString(balance),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_RollbackRestoresWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wallets := NewWalletRepo(s)
	ledger := NewLedgerRepo(s)

	w, err := wallets.GetOrCreate(ctx, newWallet(uuid.New(), "100.00"))
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, wallets.UpdateBalance(ctx, tx, w.ID, decimal.RequireFromString("10.00")))
	_, inserted, err := ledger.Insert(ctx, tx, &domain.LedgerEntry{
		LedgerID: uuid.New(), TransactionID: "TXN-1", Direction: domain.DirectionDebit,
		Amount: decimal.RequireFromString("90.00"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, tx.Rollback(ctx))

	got, err := wallets.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Balance.String())

	entries, err := ledger.ListByTransaction(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_CommitKeepsWritesAndClosesTx(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wallets := NewWalletRepo(s)
	w, _ := wallets.GetOrCreate(ctx, newWallet(uuid.New(), "5.00"))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, wallets.UpdateBalance(ctx, tx, w.ID, decimal.RequireFromString("7.50")))
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, wallets.UpdateBalance(ctx, tx, w.ID, decimal.Zero), pgx.ErrTxClosed)

	got, _ := wallets.GetByID(ctx, w.ID)
	assert.Equal(t, "7.5", got.Balance.String())
}

func TestWalletRepo_GetOrCreate_ReturnsExisting(t *testing.T) {
	ctx := context.Background()
	wallets := NewWalletRepo(NewStore())
	owner := uuid.New()

	first, err := wallets.GetOrCreate(ctx, newWallet(owner, "0"))
	require.NoError(t, err)
	second, err := wallets.GetOrCreate(ctx, newWallet(owner, "0"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestWalletRepo_UpdateBalance_RefusesNegative(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wallets := NewWalletRepo(s)
	w, _ := wallets.GetOrCreate(ctx, newWallet(uuid.New(), "1.00"))

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck
	assert.Error(t, wallets.UpdateBalance(ctx, tx, w.ID, decimal.RequireFromString("-0.01")))
}

func TestLedgerRepo_InsertIsIdempotentPerDirection(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ledger := NewLedgerRepo(s)

	entry := func(dir domain.Direction, amount string) *domain.LedgerEntry {
		return &domain.LedgerEntry{
			LedgerID: uuid.New(), TransactionID: "TXN-2", Direction: dir,
			Amount: decimal.RequireFromString(amount), Currency: "USD", CreatedAt: time.Now().UTC(),
		}
	}

	tx, _ := s.Begin(ctx)
	first, inserted, err := ledger.Insert(ctx, tx, entry(domain.DirectionDebit, "10.00"))
	require.NoError(t, err)
	assert.True(t, inserted)
	replay, inserted, err := ledger.Insert(ctx, tx, entry(domain.DirectionDebit, "99.00"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.LedgerID, replay.LedgerID)
	assert.Equal(t, "10", replay.Amount.String())
	_, inserted, err = ledger.Insert(ctx, tx, entry(domain.DirectionCredit, "10.00"))
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, tx.Commit(ctx))

	entries, err := ledger.ListByTransaction(ctx, "TXN-2")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
}

func TestLedgerRepo_List_FiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ledger := NewLedgerRepo(s)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tx, _ := s.Begin(ctx)
	for i := 0; i < 5; i++ {
		_, _, err := ledger.Insert(ctx, tx, &domain.LedgerEntry{
			LedgerID: uuid.New(), TransactionID: uuid.NewString(), Direction: domain.DirectionCredit,
			Counterpart: "tok_a", Amount: decimal.NewFromInt(1), Currency: "USD",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit(ctx))

	from := base.Add(time.Hour)
	to := base.Add(4 * time.Hour)
	entries, total, err := ledger.List(ctx, ports.LedgerListParams{From: &from, To: &to, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 1)
	assert.Equal(t, base.Add(3*time.Hour), entries[0].CreatedAt)
}

func TestCardRepo_UniquenessRules(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	cards := NewCardRepo(s)
	owner := uuid.New()
	now := time.Now().UTC()

	first := &domain.Card{ID: uuid.New(), OwnerID: owner, TokenReference: "tok_1", Fingerprint: "fp",
		Status: domain.CardStatusActive, MerchantStatus: domain.MerchantStatusConsumerOnly, IsDefault: true, CreatedAt: now}
	tx, _ := s.Begin(ctx)
	require.NoError(t, cards.Create(ctx, tx, first))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx)
	dup := &domain.Card{ID: uuid.New(), OwnerID: owner, TokenReference: "tok_2", Fingerprint: "fp",
		Status: domain.CardStatusPending, MerchantStatus: domain.MerchantStatusConsumerOnly, CreatedAt: now}
	assert.ErrorIs(t, cards.Create(ctx, tx, dup), ports.ErrDuplicateFingerprint)

	second := &domain.Card{ID: uuid.New(), OwnerID: owner, TokenReference: "tok_3", Fingerprint: "fp2",
		Status: domain.CardStatusPending, MerchantStatus: domain.MerchantStatusConsumerOnly, IsDefault: true, CreatedAt: now}
	assert.ErrorIs(t, cards.Create(ctx, tx, second), ports.ErrDuplicateDefaultCard)
	require.NoError(t, tx.Rollback(ctx))

	// A removed card no longer blocks its fingerprint.
	tx, _ = s.Begin(ctx)
	first.Status = domain.CardStatusRemoved
	first.IsDefault = false
	require.NoError(t, cards.Update(ctx, tx, first))
	require.NoError(t, cards.Create(ctx, tx, dup))
	require.NoError(t, tx.Commit(ctx))

	found, err := cards.FindByFingerprint(ctx, owner, "fp")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, dup.ID, found.ID)

	listed, err := cards.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestMerchantRequestRepo_OneOpenRequestPerPair(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	requests := NewMerchantRequestRepo(s)

	req := &domain.MerchantRequest{ID: uuid.New(), DeviceID: "dev_1", SettlementCardToken: "tok_s",
		Status: domain.MerchantRequestPending, CreatedAt: time.Now().UTC()}
	tx, _ := s.Begin(ctx)
	require.NoError(t, requests.Create(ctx, tx, req))

	again := *req
	again.ID = uuid.New()
	assert.ErrorIs(t, requests.Create(ctx, tx, &again), ports.ErrDuplicateOpenRequest)

	open, err := requests.FindOpen(ctx, tx, "dev_1", "tok_s")
	require.NoError(t, err)
	require.NotNil(t, open)

	req.Status = domain.MerchantRequestRejected
	require.NoError(t, requests.Update(ctx, tx, req))
	require.NoError(t, requests.Create(ctx, tx, &again))
	require.NoError(t, tx.Commit(ctx))

	pending, total, err := requests.ListByStatus(ctx, domain.MerchantRequestPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, again.ID, pending[0].ID)
}

func TestIdempotencyRepo_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewIdempotencyRepo(s)

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.Create(ctx, tx, &domain.IdempotencyLog{Key: "k", Reference: "TRX-1"}))
	assert.ErrorIs(t, repo.Create(ctx, tx, &domain.IdempotencyLog{Key: "k"}), ports.ErrDuplicateIdempotencyKey)
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "TRX-1", got.Reference)

	missing, err := repo.Get(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ForeignTxRejected(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()
	tx, _ := a.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err := NewWalletRepo(b).GetByIDForUpdate(ctx, tx, uuid.New())
	assert.Error(t, err)
}
