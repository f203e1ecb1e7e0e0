package handler

import (
	"context"

	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc       ports.WalletService
	defaultCurrency string
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, defaultCurrency string) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, defaultCurrency: defaultCurrency}
}

// GetMine handles GET /api/v1/wallets/me. The wallet is opened on first use.
func (h *WalletHandler) GetMine(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetOrCreate(c.Request.Context(), owner, c.DefaultQuery("currency", h.defaultCurrency))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(wallet))
}

// AdminCredit handles POST /api/v1/admin/wallets/:id/credit.
func (h *WalletHandler) AdminCredit(c *gin.Context) {
	h.adjust(c, h.walletSvc.Credit)
}

// AdminDebit handles POST /api/v1/admin/wallets/:id/debit.
func (h *WalletHandler) AdminDebit(c *gin.Context) {
	h.adjust(c, h.walletSvc.Debit)
}

func (h *WalletHandler) adjust(c *gin.Context, op func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)) {
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AmountRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := op(c.Request.Context(), walletID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(wallet))
}
