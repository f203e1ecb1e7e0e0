package middleware

import (
	"net/http"

	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body. A declared Content-Length above the
// limit is rejected up front; otherwise the reader fails once it is crossed
// and binding reports SEC_001.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
