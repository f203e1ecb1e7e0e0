package handler

import (
	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// CardHandler handles card provisioning endpoints.
type CardHandler struct {
	cardSvc ports.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc}
}

// Add handles POST /api/v1/cards. The card comes back pending.
func (h *CardHandler) Add(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req dto.AddCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardSvc.AddCard(c.Request.Context(), owner, domain.RawCard{
		PAN:         req.PAN,
		CVV:         req.CVV,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		HolderName:  req.HolderName,
		Scheme:      req.Scheme,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// Verify handles POST /api/v1/cards/:id/verify.
func (h *CardHandler) Verify(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	cardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.VerifyCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardSvc.VerifyCard(c.Request.Context(), owner, cardID, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// Remove handles DELETE /api/v1/cards/:id.
func (h *CardHandler) Remove(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	cardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	card, err := h.cardSvc.RemoveCard(c.Request.Context(), owner, cardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// SetDefault handles POST /api/v1/cards/:id/default.
func (h *CardHandler) SetDefault(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	cardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	card, err := h.cardSvc.SetDefault(c.Request.Context(), owner, cardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// List handles GET /api/v1/cards.
func (h *CardHandler) List(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	cards, err := h.cardSvc.ListCards(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	response.OK(c, cards)
}
