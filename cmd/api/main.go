package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nfc-wallet/config"
	"nfc-wallet/internal/adapter/eventbus"
	httpHandler "nfc-wallet/internal/adapter/http/handler"
	"nfc-wallet/internal/adapter/provider/httpapi"
	mockProvider "nfc-wallet/internal/adapter/provider/mock"
	"nfc-wallet/internal/adapter/storage/archive"
	memStorage "nfc-wallet/internal/adapter/storage/memory"
	pgStorage "nfc-wallet/internal/adapter/storage/postgres"
	redisStorage "nfc-wallet/internal/adapter/storage/redis"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/internal/service"
	"nfc-wallet/internal/worker"
	"nfc-wallet/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// repositories groups the storage ports so either backend can be wired the
// same way.
type repositories struct {
	wallets      ports.WalletRepository
	ledger       ports.LedgerRepository
	transactions ports.TransactionRepository
	cards        ports.CardRepository
	requests     ports.MerchantRequestRepository
	idempotency  ports.IdempotencyRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
	close        func()
}

// eventPipeline is the subset shared by the in-process bus and the Redis
// queue.
type eventPipeline interface {
	ports.EventPublisher
	Subscribe(h ports.AuthorizationEventHandler)
	Close(ctx context.Context) error
}

type providers struct {
	tokenizer ports.TokenizationProvider
	issuer    ports.IssuerVerificationProvider
	notifier  ports.NotificationProvider
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Database.Driver).
		Str("providers", cfg.Providers.Driver).
		Str("events", cfg.Events.Driver).
		Msg("Starting NFC wallet")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise storage")
	}
	defer repos.close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	otpAttempts := redisStorage.NewOtpAttemptStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	provs, err := newProviders(cfg.Providers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise providers")
	}

	// Authorization events feed the ledger asynchronously.
	ledgerSvc := service.NewLedgerService(repos.ledger, repos.transactor, log)
	bus, err := startEvents(cfg.Events, cfg.Redis, service.NewLedgerListener(ledgerSvc, logger.Component(log, "ledger")), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start event pipeline")
	}

	walletSvc := service.NewWalletService(repos.wallets, repos.transactor, service.WalletLimits{
		Daily:   cfg.Wallet.DefaultDailyLimit,
		Monthly: cfg.Wallet.DefaultMonthlyLimit,
	}, log)
	transferSvc := service.NewTransferService(
		walletSvc,
		repos.wallets,
		repos.transactions,
		repos.cards,
		repos.idempotency,
		idempotencyCache,
		ledgerSvc,
		service.NewPercentageFeePolicy(cfg.Fees.PaymentRate, cfg.Fees.PaymentFixed),
		repos.transactor,
		log,
	)
	authorizer := service.NewAuthorizer(service.AuthorizationRules{
		BlockedCardPrefixes: cfg.Authorization.BlockedCardPrefixes,
		BlockedDevices:      cfg.Authorization.BlockedDevices,
		AmountCeiling:       cfg.Authorization.AmountCeiling,
	}, bus, log)
	cardSvc := service.NewCardService(
		repos.cards,
		provs.tokenizer,
		provs.issuer,
		provs.notifier,
		otpAttempts,
		repos.transactor,
		service.CardPolicy{
			FingerprintKey: []byte(cfg.Cards.FingerprintKey),
			MaxOtpAttempts: cfg.Cards.MaxOtpAttempts,
			OtpWindow:      cfg.Cards.OtpWindow,
		},
		log,
	)
	merchantSvc := service.NewMerchantService(repos.requests, repos.cards, repos.transactor, log)
	acceptanceSvc := service.NewAcceptanceService(repos.requests, repos.cards, authorizer, log)
	historySvc := service.NewHistoryService(repos.transactions, repos.ledger)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	scheduler, err := newScheduler(ctx, cfg.Archive, repos.ledger, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ledger export")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TransferSvc:    transferSvc,
		CardSvc:        cardSvc,
		MerchantSvc:    merchantSvc,
		AcceptanceSvc:  acceptanceSvc,
		HistorySvc:     historySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{repos.health, redisStorage.NewHealthCheck(rdb)},
		Mode:           cfg.Server.Mode,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Currency:       cfg.Wallet.DefaultCurrency,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
	}
	// Drain pending authorization events so the ledger is complete.
	if err := bus.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Event bus did not drain")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*repositories, error) {
	switch cfg.Driver {
	case "memory":
		store := memStorage.NewStore()
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		return &repositories{
			wallets:      memStorage.NewWalletRepo(store),
			ledger:       memStorage.NewLedgerRepo(store),
			transactions: memStorage.NewTransactionRepo(store),
			cards:        memStorage.NewCardRepo(store),
			requests:     memStorage.NewMerchantRequestRepo(store),
			idempotency:  memStorage.NewIdempotencyRepo(store),
			transactor:   store,
			health:       store,
			close:        func() {},
		}, nil
	case "", "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		if cfg.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return &repositories{
			wallets:      pgStorage.NewWalletRepo(pool),
			ledger:       pgStorage.NewLedgerRepo(pool),
			transactions: pgStorage.NewTransactionRepo(pool),
			cards:        pgStorage.NewCardRepo(pool),
			requests:     pgStorage.NewMerchantRequestRepo(pool),
			idempotency:  pgStorage.NewIdempotencyRepo(pool),
			transactor:   pgStorage.NewTransactor(pool),
			health:       pgStorage.NewHealthCheck(pool),
			close:        pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func startEvents(cfg config.EventConfig, redisCfg config.RedisConfig, listener ports.AuthorizationEventHandler, log zerolog.Logger) (eventPipeline, error) {
	log = logger.Component(log, "eventbus")
	opts := eventbus.Options{
		Buffer:     cfg.Buffer,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	switch cfg.Driver {
	case "", "memory":
		bus := eventbus.New(opts, log)
		bus.Subscribe(listener)
		bus.Start(context.Background(), cfg.Workers)
		return bus, nil
	case "asynq":
		queue := eventbus.NewQueue(eventbus.RedisOpt(redisCfg), opts, log)
		queue.Subscribe(listener)
		if err := queue.Start(cfg.Workers); err != nil {
			_ = queue.Close(context.Background())
			return nil, err
		}
		log.Info().Str("redis", redisCfg.Addr()).Msg("Authorization events queued in Redis")
		return queue, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

func newProviders(cfg config.ProviderConfig, log zerolog.Logger) (*providers, error) {
	log = logger.Component(log, "provider")
	switch cfg.Driver {
	case "", "mock":
		log.Warn().Str("otp", mockProvider.OTP).Msg("Using mock card providers")
		return &providers{
			tokenizer: mockProvider.NewTokenizer(log),
			issuer:    mockProvider.NewIssuer(log),
			notifier:  mockProvider.NewNotifier(log),
		}, nil
	case "http":
		return &providers{
			tokenizer: httpapi.NewVault(cfg, log),
			issuer:    httpapi.NewIssuer(cfg, log),
			notifier:  httpapi.NewNotifier(cfg, log),
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider driver %q", cfg.Driver)
	}
}

// newScheduler returns nil when the ledger archive is disabled.
func newScheduler(ctx context.Context, cfg config.ArchiveConfig, ledgerRepo ports.LedgerRepository, log zerolog.Logger) (*worker.Scheduler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := archive.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter := service.NewLedgerExporter(ledgerRepo, archive.NewS3Archive(client, cfg.Bucket, cfg.Prefix), log)

	scheduler, err := worker.NewScheduler(logger.Component(log, "scheduler"), 5*time.Minute)
	if err != nil {
		return nil, err
	}
	job, err := scheduler.AddLedgerExport(exporter, cfg.RunAtHour, cfg.RunAtMinute)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	if next, err := job.NextRun(); err == nil {
		log.Info().Time("next_run", next).Str("bucket", cfg.Bucket).Msg("Ledger export scheduled")
	}
	return scheduler, nil
}
