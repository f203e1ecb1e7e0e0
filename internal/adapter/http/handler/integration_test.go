package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nfc-wallet/internal/adapter/eventbus"
	"nfc-wallet/internal/adapter/http/handler"
	mockProvider "nfc-wallet/internal/adapter/provider/mock"
	"nfc-wallet/internal/adapter/storage/memory"
	redisStorage "nfc-wallet/internal/adapter/storage/redis"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp runs the real services over the in-memory store, miniredis and
// the mock card providers behind an httptest server.
type testApp struct {
	server *httptest.Server
	tokens *service.JWTTokenService
	bus    *eventbus.Bus
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zerolog.Nop()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	walletRepo := memory.NewWalletRepo(store)
	ledgerRepo := memory.NewLedgerRepo(store)
	txnRepo := memory.NewTransactionRepo(store)
	cardRepo := memory.NewCardRepo(store)
	requestRepo := memory.NewMerchantRequestRepo(store)

	bus := eventbus.New(eventbus.Options{Buffer: 64, MaxRetries: 2, RetryDelay: 10 * time.Millisecond}, log)
	ledgerSvc := service.NewLedgerService(ledgerRepo, store, log)
	bus.Subscribe(service.NewLedgerListener(ledgerSvc, log))
	bus.Start(context.Background(), 2)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Close(ctx)
	})

	walletSvc := service.NewWalletService(walletRepo, store, service.WalletLimits{
		Daily:   decimal.RequireFromString("1000.00"),
		Monthly: decimal.RequireFromString("10000.00"),
	}, log)
	transferSvc := service.NewTransferService(
		walletSvc, walletRepo, txnRepo, cardRepo,
		memory.NewIdempotencyRepo(store), redisStorage.NewIdempotencyCache(rdb),
		ledgerSvc,
		service.NewPercentageFeePolicy(decimal.RequireFromString("0.029"), decimal.RequireFromString("0.30")),
		store, log,
	)
	authorizer := service.NewAuthorizer(service.AuthorizationRules{
		BlockedCardPrefixes: []string{"tok_blocked"},
		AmountCeiling:       decimal.RequireFromString("5000.00"),
	}, bus, log)
	cardSvc := service.NewCardService(
		cardRepo,
		mockProvider.NewTokenizer(log),
		mockProvider.NewIssuer(log),
		mockProvider.NewNotifier(log),
		redisStorage.NewOtpAttemptStore(rdb),
		store,
		service.CardPolicy{FingerprintKey: []byte("integration-key"), MaxOtpAttempts: 5, OtpWindow: time.Minute},
		log,
	)
	tokens := service.NewJWTTokenService("integration-secret-at-least-32-bytes!", time.Hour, "nfc-wallet-test")

	router := handler.SetupRouter(handler.RouterDeps{
		WalletSvc:      walletSvc,
		TransferSvc:    transferSvc,
		CardSvc:        cardSvc,
		MerchantSvc:    service.NewMerchantService(requestRepo, cardRepo, store, log),
		AcceptanceSvc:  service.NewAcceptanceService(requestRepo, cardRepo, authorizer, log),
		HistorySvc:     service.NewHistoryService(txnRepo, ledgerRepo),
		TokenSvc:       tokens,
		HealthCheckers: []ports.HealthChecker{store, redisStorage.NewHealthCheck(rdb)},
		Mode:           gin.TestMode,
		Currency:       "USD",
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, tokens: tokens, bus: bus}
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

func (a *testApp) token(t *testing.T, owner uuid.UUID, device, role string) string {
	t.Helper()
	tok, _, err := a.tokens.Generate(owner, device, role)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type walletView struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

type cardView struct {
	ID             string `json:"id"`
	TokenReference string `json:"token_reference"`
	Status         string `json:"status"`
	MerchantStatus string `json:"merchant_status"`
	IsDefault      bool   `json:"is_default"`
}

// fundedWallet opens the caller's wallet and credits it through the admin API.
func (a *testApp) fundedWallet(t *testing.T, userTok, adminTok, amount string) walletView {
	t.Helper()
	status, env := a.do(t, http.MethodGet, "/api/v1/wallets/me", userTok, nil)
	require.Equal(t, http.StatusOK, status)
	w := decode[walletView](t, env)

	status, env = a.do(t, http.MethodPost, "/api/v1/admin/wallets/"+w.ID+"/credit", adminTok, map[string]string{"amount": amount})
	require.Equal(t, http.StatusOK, status, env.ErrorCode)
	return decode[walletView](t, env)
}

// activeCard adds a card and answers the OTP the mock issuer sends.
func (a *testApp) activeCard(t *testing.T, userTok, pan string) cardView {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/v1/cards", userTok, map[string]any{
		"pan":          pan,
		"cvv":          "123",
		"expiry_month": 12,
		"expiry_year":  2099,
		"holder_name":  "Test Holder",
		"scheme":       "visa",
	})
	require.Equal(t, http.StatusCreated, status, env.ErrorCode)
	card := decode[cardView](t, env)
	require.Equal(t, "pending", card.Status)

	status, env = a.do(t, http.MethodPost, "/api/v1/cards/"+card.ID+"/verify", userTok, map[string]string{"otp": mockProvider.OTP})
	require.Equal(t, http.StatusOK, status, env.ErrorCode)
	card = decode[cardView](t, env)
	require.Equal(t, "active", card.Status)
	return card
}

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)

	status, env := app.do(t, http.MethodGet, "/api/v1/wallets/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_001", env.ErrorCode)

	userTok := app.token(t, uuid.New(), "pixel-8", service.RoleUser)
	status, env = app.do(t, http.MethodGet, "/api/v1/admin/ledger", userTok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "AUTH_003", env.ErrorCode)
}

func TestIntegration_TransferEndToEnd(t *testing.T) {
	app := newTestApp(t)
	adminTok := app.token(t, uuid.New(), "console", service.RoleAdmin)
	sender := uuid.New()
	receiver := uuid.New()
	senderTok := app.token(t, sender, "sender-phone", service.RoleUser)
	receiverTok := app.token(t, receiver, "receiver-phone", service.RoleUser)

	funded := app.fundedWallet(t, senderTok, adminTok, "100.00")
	assert.Equal(t, "100.00", funded.Balance)

	body := map[string]string{
		"receiver_owner_id": receiver.String(),
		"amount":            "25.50",
		"currency":          "USD",
		"description":       "dinner",
	}
	status, env := app.do(t, http.MethodPost, "/api/v1/transfers", senderTok, body, handler.HeaderIdempotencyKey, "transfer-1")
	require.Equal(t, http.StatusCreated, status, env.ErrorCode)
	first := decode[struct {
		Reference string `json:"reference"`
		Sender    struct {
			Amount string `json:"amount"`
		} `json:"sender"`
		Receiver struct {
			Amount string `json:"amount"`
		} `json:"receiver"`
	}](t, env)
	assert.Equal(t, "-25.50", first.Sender.Amount)
	assert.Equal(t, "25.50", first.Receiver.Amount)

	// Replaying the key returns the original transfer without moving money.
	status, env = app.do(t, http.MethodPost, "/api/v1/transfers", senderTok, body, handler.HeaderIdempotencyKey, "transfer-1")
	require.Equal(t, http.StatusCreated, status, env.ErrorCode)
	replay := decode[struct {
		Reference string `json:"reference"`
	}](t, env)
	assert.Equal(t, first.Reference, replay.Reference)

	_, env = app.do(t, http.MethodGet, "/api/v1/wallets/me", senderTok, nil)
	assert.Equal(t, "74.50", decode[walletView](t, env).Balance)
	_, env = app.do(t, http.MethodGet, "/api/v1/wallets/me", receiverTok, nil)
	assert.Equal(t, "25.50", decode[walletView](t, env).Balance)

	// Both ledger sides are written with the transfer.
	status, env = app.do(t, http.MethodGet, "/api/v1/admin/ledger/"+first.Reference, adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]struct {
		Direction string `json:"direction"`
		Amount    string `json:"amount"`
	}](t, env)
	require.Len(t, entries, 2)

	status, env = app.do(t, http.MethodGet, "/api/v1/transactions?type=transfer", senderTok, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[struct {
		Total int64 `json:"total"`
	}](t, env)
	assert.Equal(t, int64(1), page.Total)
}

func TestIntegration_TransferInsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	adminTok := app.token(t, uuid.New(), "console", service.RoleAdmin)
	senderTok := app.token(t, uuid.New(), "sender-phone", service.RoleUser)
	app.fundedWallet(t, senderTok, adminTok, "10.00")

	status, env := app.do(t, http.MethodPost, "/api/v1/transfers", senderTok, map[string]string{
		"receiver_owner_id": uuid.New().String(),
		"amount":            "10.01",
		"currency":          "USD",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "WAL_001", env.ErrorCode)

	_, env = app.do(t, http.MethodGet, "/api/v1/wallets/me", senderTok, nil)
	assert.Equal(t, "10.00", decode[walletView](t, env).Balance)
}

// TestIntegration_ConcurrentTransfers fires more transfers than the balance
// covers. Row locking must let exactly balance/amount of them through.
func TestIntegration_ConcurrentTransfers(t *testing.T) {
	app := newTestApp(t)
	adminTok := app.token(t, uuid.New(), "console", service.RoleAdmin)
	senderTok := app.token(t, uuid.New(), "sender-phone", service.RoleUser)
	receiver := uuid.New()
	app.fundedWallet(t, senderTok, adminTok, "100.00")

	const attempts = 20
	var wg sync.WaitGroup
	var succeeded, rejected atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _ := app.do(t, http.MethodPost, "/api/v1/transfers", senderTok, map[string]string{
				"receiver_owner_id": receiver.String(),
				"amount":            "10.00",
				"currency":          "USD",
			}, handler.HeaderIdempotencyKey, fmt.Sprintf("concurrent-%d", i))
			switch status {
			case http.StatusCreated:
				succeeded.Add(1)
			case http.StatusPaymentRequired:
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(attempts-10), rejected.Load())

	_, env := app.do(t, http.MethodGet, "/api/v1/wallets/me", senderTok, nil)
	assert.Equal(t, "0.00", decode[walletView](t, env).Balance)
}

func TestIntegration_WalletPayment(t *testing.T) {
	app := newTestApp(t)
	adminTok := app.token(t, uuid.New(), "console", service.RoleAdmin)
	userTok := app.token(t, uuid.New(), "pixel-8", service.RoleUser)
	app.fundedWallet(t, userTok, adminTok, "50.00")
	card := app.activeCard(t, userTok, "4111111111111111")
	assert.True(t, card.IsDefault)

	status, env := app.do(t, http.MethodPost, "/api/v1/payments", userTok, map[string]string{
		"card_id":       card.ID,
		"amount":        "10.00",
		"currency":      "USD",
		"merchant_name": "Corner Cafe",
		"cryptogram":    "A1B2C3D4E5F6",
	})
	require.Equal(t, http.StatusCreated, status, env.ErrorCode)
	txn := decode[struct {
		Fee   string `json:"fee"`
		Total string `json:"total"`
	}](t, env)
	assert.Equal(t, "0.59", txn.Fee)
	assert.Equal(t, "-10.59", txn.Total)

	_, env = app.do(t, http.MethodGet, "/api/v1/wallets/me", userTok, nil)
	assert.Equal(t, "39.41", decode[walletView](t, env).Balance)
}

func TestIntegration_CardProvisioning(t *testing.T) {
	app := newTestApp(t)
	userTok := app.token(t, uuid.New(), "pixel-8", service.RoleUser)

	first := app.activeCard(t, userTok, "4111111111111111")
	second := app.activeCard(t, userTok, "5500000000000004")
	assert.True(t, first.IsDefault)
	assert.False(t, second.IsDefault)

	// The same card cannot be provisioned twice.
	status, env := app.do(t, http.MethodPost, "/api/v1/cards", userTok, map[string]any{
		"pan": "4111111111111111", "cvv": "123", "expiry_month": 12, "expiry_year": 2099,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CARD_001", env.ErrorCode)

	// Removing the default promotes the remaining card.
	status, env = app.do(t, http.MethodDelete, "/api/v1/cards/"+first.ID, userTok, nil)
	require.Equal(t, http.StatusOK, status, env.ErrorCode)
	assert.Equal(t, "removed", decode[cardView](t, env).Status)

	status, env = app.do(t, http.MethodGet, "/api/v1/cards", userTok, nil)
	require.Equal(t, http.StatusOK, status)
	cards := decode[[]cardView](t, env)
	var promoted bool
	for _, c := range cards {
		if c.ID == second.ID {
			promoted = c.IsDefault
		}
	}
	assert.True(t, promoted)
}

func TestIntegration_MerchantAcceptance(t *testing.T) {
	app := newTestApp(t)
	adminTok := app.token(t, uuid.New(), "console", service.RoleAdmin)
	merchantTok := app.token(t, uuid.New(), "terminal-1", service.RoleUser)
	payerTok := app.token(t, uuid.New(), "payer-phone", service.RoleUser)

	settlement := app.activeCard(t, merchantTok, "4111111111111111")
	payerCard := app.activeCard(t, payerTok, "5500000000000004")

	// Taps are refused until the device is approved.
	tap := map[string]string{"card_token": payerCard.TokenReference, "amount": "42.50", "currency": "USD"}
	status, env := app.do(t, http.MethodPost, "/api/v1/acceptance/payments", merchantTok, tap)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "MER_005", env.ErrorCode)

	status, env = app.do(t, http.MethodPost, "/api/v1/merchant-requests", merchantTok, map[string]any{
		"settlement_card_id": settlement.ID,
		"business":           map[string]string{"name": "Corner Cafe", "type": "food"},
	})
	require.Equal(t, http.StatusCreated, status, env.ErrorCode)
	request := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "pending", request.Status)

	status, env = app.do(t, http.MethodPost, "/api/v1/admin/merchant-requests/"+request.ID+"/approve", adminTok, nil)
	require.Equal(t, http.StatusOK, status, env.ErrorCode)

	status, env = app.do(t, http.MethodPost, "/api/v1/acceptance/payments", merchantTok, tap)
	require.Equal(t, http.StatusOK, status, env.ErrorCode)
	result := decode[struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}](t, env)
	assert.Equal(t, "APPROVED", result.Status)
	require.NotEmpty(t, result.TransactionID)

	// The ledger is written asynchronously from the authorization event.
	require.Eventually(t, func() bool {
		status, env := app.do(t, http.MethodGet, "/api/v1/admin/ledger/"+result.TransactionID, adminTok, nil)
		if status != http.StatusOK {
			return false
		}
		var entries []json.RawMessage
		return json.Unmarshal(env.Data, &entries) == nil && len(entries) == 2
	}, 2*time.Second, 20*time.Millisecond)

	// A tap over the ceiling is declined, not an error.
	tap["amount"] = "5000.01"
	status, env = app.do(t, http.MethodPost, "/api/v1/acceptance/payments", merchantTok, tap)
	require.Equal(t, http.StatusOK, status, env.ErrorCode)
	assert.Equal(t, "DECLINED", decode[struct {
		Status string `json:"status"`
	}](t, env).Status)
}
