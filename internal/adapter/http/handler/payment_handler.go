package handler

import (
	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey makes a transfer safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles transfers and wallet-funded payments.
type PaymentHandler struct {
	transferSvc ports.TransferService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(transferSvc ports.TransferService) *PaymentHandler {
	return &PaymentHandler{transferSvc: transferSvc}
}

// Transfer handles POST /api/v1/transfers.
func (h *PaymentHandler) Transfer(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	pair, err := h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderOwnerID:   owner,
		ReceiverOwnerID: uuid.MustParse(req.ReceiverOwnerID),
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		IdempotencyKey:  c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransferResponse(pair))
}

// Pay handles POST /api/v1/payments.
func (h *PaymentHandler) Pay(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req dto.WalletPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.transferSvc.ProcessPayment(c.Request.Context(), ports.PaymentRequest{
		OwnerID:      owner,
		CardID:       uuid.MustParse(req.CardID),
		Amount:       req.Amount,
		Currency:     req.Currency,
		MerchantName: req.MerchantName,
		Cryptogram:   req.Cryptogram,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(txn))
}
