package middleware

import (
	"net/http"
	"strings"
	"time"

	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxOwnerID  = "owner_id"
	CtxDeviceID = "device_id"
	CtxRole     = "role"
)

// RequestID assigns every request an ID, reusing a well-formed incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// JWTAuth validates bearer tokens and stores the owner, device and role.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected access token")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxOwnerID, claims.OwnerID)
		c.Set(CtxDeviceID, claims.DeviceID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets through only callers whose token carries role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != role {
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}
		c.Next()
	}
}

// OwnerID returns the authenticated owner.
func OwnerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxOwnerID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if owner, ok := OwnerID(c); ok {
			event = event.Str("owner_id", owner.String())
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString(response.RequestIDKey)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				response.Error(c, apperror.InternalError(nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
