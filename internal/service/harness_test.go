package service

import (
	"context"
	"testing"
	"time"

	"nfc-wallet/internal/adapter/storage/memory"
	redisstore "nfc-wallet/internal/adapter/storage/redis"
	"nfc-wallet/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// walletEnv wires the money-moving services over the in-memory store and
// a miniredis-backed idempotency cache.
type walletEnv struct {
	store       *memory.Store
	redis       *miniredis.Miniredis
	rdb         *goredis.Client
	walletRepo  *memory.WalletRepo
	txnRepo     *memory.TransactionRepo
	ledgerRepo  *memory.LedgerRepo
	cardRepo    *memory.CardRepo
	requestRepo *memory.MerchantRequestRepo
	idempRepo   *memory.IdempotencyRepo
	wallets     *WalletServiceImpl
	ledger      *LedgerServiceImpl
	transfers   *TransferServiceImpl
}

func newWalletEnv(t *testing.T) *walletEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	env := &walletEnv{
		store:       store,
		redis:       mr,
		rdb:         client,
		walletRepo:  memory.NewWalletRepo(store),
		txnRepo:     memory.NewTransactionRepo(store),
		ledgerRepo:  memory.NewLedgerRepo(store),
		cardRepo:    memory.NewCardRepo(store),
		requestRepo: memory.NewMerchantRequestRepo(store),
		idempRepo:   memory.NewIdempotencyRepo(store),
	}
	log := zerolog.Nop()
	env.wallets = NewWalletService(env.walletRepo, store, WalletLimits{Daily: dec("1000.00"), Monthly: dec("10000.00")}, log)
	env.ledger = NewLedgerService(env.ledgerRepo, store, log)
	env.transfers = NewTransferService(
		env.wallets, env.walletRepo, env.txnRepo, env.cardRepo, env.idempRepo,
		redisstore.NewIdempotencyCache(client), env.ledger,
		NewPercentageFeePolicy(dec("0.029"), dec("0.30")), store, log,
	)
	return env
}

// fundedWallet creates a USD wallet for a new owner holding balance.
func (e *walletEnv) fundedWallet(t *testing.T, balance string) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := e.wallets.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)
	if b := dec(balance); b.IsPositive() {
		w, err = e.wallets.Credit(ctx, w.ID, b)
		require.NoError(t, err)
	}
	return w
}

func (e *walletEnv) balance(t *testing.T, walletID uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := e.walletRepo.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}

// activeCard stores an active card for owner directly in the store.
func (e *walletEnv) activeCard(t *testing.T, owner uuid.UUID, token string) *domain.Card {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	card := &domain.Card{
		ID:             uuid.New(),
		OwnerID:        owner,
		TokenReference: token,
		LastFour:       "4242",
		Scheme:         "visa",
		Fingerprint:    uuid.NewString(),
		Status:         domain.CardStatusActive,
		MerchantStatus: domain.MerchantStatusConsumerOnly,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, e.cardRepo.Create(ctx, tx, card))
	require.NoError(t, tx.Commit(ctx))
	return card
}
