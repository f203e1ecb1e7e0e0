package handler

import (
	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/adapter/http/middleware"
	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MerchantHandler handles merchant onboarding and review.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// Submit handles POST /api/v1/merchant-requests for the calling device.
func (h *MerchantHandler) Submit(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	device := c.GetString(middleware.CtxDeviceID)
	if device == "" {
		response.Error(c, apperror.Validation("access token carries no device"))
		return
	}

	var req dto.MerchantApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	mr, err := h.merchantSvc.Submit(c.Request.Context(), ports.SubmitMerchantRequest{
		OwnerID:          owner,
		DeviceID:         device,
		SettlementCardID: uuid.MustParse(req.SettlementCardID),
		Business:         req.Business.ToDomain(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mr)
}

// Cancel handles POST /api/v1/merchant-requests/:id/cancel.
func (h *MerchantHandler) Cancel(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	mr, err := h.merchantSvc.Cancel(c.Request.Context(), requestID, owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mr)
}

// Approve handles POST /api/v1/admin/merchant-requests/:id/approve.
func (h *MerchantHandler) Approve(c *gin.Context) {
	reviewer, ok := currentOwner(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	mr, err := h.merchantSvc.Approve(c.Request.Context(), requestID, reviewer.String())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mr)
}

// Reject handles POST /api/v1/admin/merchant-requests/:id/reject.
func (h *MerchantHandler) Reject(c *gin.Context) {
	reviewer, ok := currentOwner(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	mr, err := h.merchantSvc.Reject(c.Request.Context(), requestID, reviewer.String(), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mr)
}

// Disable handles POST /api/v1/admin/cards/:id/merchant/disable.
func (h *MerchantHandler) Disable(c *gin.Context) {
	cardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	card, err := h.merchantSvc.Disable(c.Request.Context(), cardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// List handles GET /api/v1/admin/merchant-requests?status=PENDING.
func (h *MerchantHandler) List(c *gin.Context) {
	status := domain.MerchantRequestStatus(c.DefaultQuery("status", string(domain.MerchantRequestPending)))
	page, pageSize := pageParams(c)

	items, total, err := h.merchantSvc.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []domain.MerchantRequest{}
	}
	response.Paged(c, items, total, page, pageSize)
}
