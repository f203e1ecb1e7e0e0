package middleware

import (
	"net/http"
	"strings"

	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditLog writes one audit line for every successful state-changing
// request. Actions are keyed by the matched route, not the raw path.
func AuditLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resource := mapRouteToAction(c.Request.Method, c.FullPath())
		if action == "" {
			return
		}

		event := log.Info().
			Str("audit_action", action).
			Str("resource_type", resource).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("client_ip", c.ClientIP()).
			Int("status", status)
		if owner, ok := OwnerID(c); ok {
			event = event.Str("owner_id", owner.String())
		}
		if device := c.GetString(CtxDeviceID); device != "" {
			event = event.Str("device_id", device)
		}
		for _, p := range c.Params {
			event = event.Str("param_"+p.Key, p.Value)
		}
		event.Msg("audit")
	}
}

func mapRouteToAction(method, route string) (string, string) {
	route = strings.TrimPrefix(route, "/api/v1")
	switch method + " " + route {
	case "POST /transfers":
		return "transfer", "transaction"
	case "POST /payments":
		return "wallet_payment", "transaction"
	case "POST /cards":
		return "card_add", "card"
	case "POST /cards/:id/verify":
		return "card_verify", "card"
	case "DELETE /cards/:id":
		return "card_remove", "card"
	case "POST /cards/:id/default":
		return "card_set_default", "card"
	case "POST /merchant-requests":
		return "merchant_submit", "merchant_request"
	case "POST /merchant-requests/:id/cancel":
		return "merchant_cancel", "merchant_request"
	case "POST /acceptance/payments":
		return "merchant_accept", "authorization"
	case "POST /admin/wallets/:id/credit":
		return "admin_credit", "wallet"
	case "POST /admin/wallets/:id/debit":
		return "admin_debit", "wallet"
	case "POST /admin/merchant-requests/:id/approve":
		return "merchant_approve", "merchant_request"
	case "POST /admin/merchant-requests/:id/reject":
		return "merchant_reject", "merchant_request"
	case "POST /admin/cards/:id/merchant/disable":
		return "merchant_disable", "card"
	}
	return "", ""
}
