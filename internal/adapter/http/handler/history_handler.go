package handler

import (
	"strings"

	"nfc-wallet/internal/adapter/http/dto"
	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves transaction and ledger history.
type HistoryHandler struct {
	historySvc ports.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historySvc ports.HistoryService) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc}
}

// ListTransactions handles GET /api/v1/transactions for the caller.
func (h *HistoryHandler) ListTransactions(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	params := ports.TransactionListParams{
		OwnerID:  owner,
		From:     from,
		To:       to,
		Page:     page,
		PageSize: pageSize,
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(strings.ToUpper(t))
		params.Type = &txType
	}
	if cur := c.Query("currency"); cur != "" {
		currency := domain.NormalizeCurrency(cur)
		params.Currency = &currency
	}

	txns, total, err := h.historySvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, dto.NewTransactionList(txns), total, page, pageSize)
}

// ListLedger handles GET /api/v1/admin/ledger.
func (h *HistoryHandler) ListLedger(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	params := ports.LedgerListParams{From: from, To: to, Page: page, PageSize: pageSize}
	if cp := c.Query("counterpart"); cp != "" {
		params.Counterpart = &cp
	}

	entries, total, err := h.historySvc.ListLedger(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, dto.NewLedgerList(entries), total, page, pageSize)
}

// LedgerForTransaction handles GET /api/v1/admin/ledger/:transaction_id.
func (h *HistoryHandler) LedgerForTransaction(c *gin.Context) {
	entries, err := h.historySvc.LedgerForTransaction(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewLedgerList(entries))
}
