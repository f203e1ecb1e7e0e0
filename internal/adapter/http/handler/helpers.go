package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"nfc-wallet/internal/adapter/http/middleware"
	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// bindJSON decodes and validates the body, writing the error response
// itself. It reports whether the handler may continue.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrBodyTooLarge())
			return false
		}
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

// currentOwner returns the authenticated owner or writes AUTH_002.
func currentOwner(c *gin.Context) (uuid.UUID, bool) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return owner, true
}

// uuidParam parses a path parameter or writes VAL_001.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation(name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and page_size, clamping them into range.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// timeQuery parses an optional RFC 3339 query parameter.
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, apperror.Validation(name+" must be an RFC 3339 timestamp"))
		return nil, false
	}
	return &t, true
}
