package handler

import (
	"nfc-wallet/internal/adapter/http/middleware"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/internal/service"
	"nfc-wallet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TransferSvc    ports.TransferService
	CardSvc        ports.CardService
	MerchantSvc    ports.MerchantService
	AcceptanceSvc  ports.AcceptanceService
	HistorySvc     ports.HistoryService
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode; "debug" also mounts /dev/token
	MaxBodyBytes   int64
	Currency       string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "" {
		deps.Mode = gin.ReleaseMode
	}
	gin.SetMode(deps.Mode)
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))
	r.Use(middleware.AuditLog(logger.Component(deps.Logger, "audit")))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	if deps.Mode == gin.DebugMode {
		authHandler := NewAuthHandler(deps.TokenSvc)
		v1.POST("/dev/token", rl("dev_token"), authHandler.IssueDevToken)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	user := v1.Group("", jwtAuth)

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.Currency)
	user.GET("/wallets/me", rl("read"), walletHandler.GetMine)

	paymentHandler := NewPaymentHandler(deps.TransferSvc)
	user.POST("/transfers", rl("transfers"), paymentHandler.Transfer)
	user.POST("/payments", rl("payments"), paymentHandler.Pay)

	historyHandler := NewHistoryHandler(deps.HistorySvc)
	user.GET("/transactions", rl("read"), historyHandler.ListTransactions)

	cardHandler := NewCardHandler(deps.CardSvc)
	cards := user.Group("/cards")
	{
		cards.GET("", rl("read"), cardHandler.List)
		cards.POST("", rl("cards"), cardHandler.Add)
		cards.POST("/:id/verify", rl("card_verify"), cardHandler.Verify)
		cards.POST("/:id/default", rl("cards"), cardHandler.SetDefault)
		cards.DELETE("/:id", rl("cards"), cardHandler.Remove)
	}

	merchantHandler := NewMerchantHandler(deps.MerchantSvc)
	merchants := user.Group("/merchant-requests")
	{
		merchants.POST("", rl("merchant"), merchantHandler.Submit)
		merchants.POST("/:id/cancel", rl("merchant"), merchantHandler.Cancel)
	}

	acceptanceHandler := NewAcceptanceHandler(deps.AcceptanceSvc)
	user.POST("/acceptance/payments", rl("acceptance"), acceptanceHandler.Accept)

	admin := v1.Group("/admin", jwtAuth, middleware.RequireRole(service.RoleAdmin))
	{
		admin.POST("/wallets/:id/credit", walletHandler.AdminCredit)
		admin.POST("/wallets/:id/debit", walletHandler.AdminDebit)
		admin.GET("/merchant-requests", merchantHandler.List)
		admin.POST("/merchant-requests/:id/approve", merchantHandler.Approve)
		admin.POST("/merchant-requests/:id/reject", merchantHandler.Reject)
		admin.POST("/cards/:id/merchant/disable", merchantHandler.Disable)
		admin.GET("/ledger", historyHandler.ListLedger)
		admin.GET("/ledger/:transaction_id", historyHandler.LedgerForTransaction)
	}

	return r
}
