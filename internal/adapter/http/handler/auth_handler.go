package handler

import (
	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler issues access tokens for local development. Production
// tokens come from the identity provider sharing the signing secret.
type AuthHandler struct {
	tokenSvc ports.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokenSvc ports.TokenService) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc}
}

// IssueDevToken handles POST /api/v1/dev/token. Only mounted in debug mode.
func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	var req dto.DevTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, expiry, err := h.tokenSvc.Generate(uuid.MustParse(req.OwnerID), req.DeviceID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}
