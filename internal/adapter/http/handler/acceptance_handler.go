package handler

import (
	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/adapter/http/middleware"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AcceptanceHandler lets an approved merchant device take card taps.
type AcceptanceHandler struct {
	acceptanceSvc ports.AcceptanceService
}

// NewAcceptanceHandler creates a new AcceptanceHandler.
func NewAcceptanceHandler(acceptanceSvc ports.AcceptanceService) *AcceptanceHandler {
	return &AcceptanceHandler{acceptanceSvc: acceptanceSvc}
}

// Accept handles POST /api/v1/acceptance/payments. A decline is a normal
// 200 response carrying status DECLINED.
func (h *AcceptanceHandler) Accept(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	device := c.GetString(middleware.CtxDeviceID)
	if device == "" {
		response.Error(c, apperror.Validation("access token carries no device"))
		return
	}

	var req dto.AcceptPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.acceptanceSvc.AcceptPayment(c.Request.Context(), ports.AcceptPaymentRequest{
		DeviceID:  device,
		CardToken: req.CardToken,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
