package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Wallet (WAL) ----

func ErrInsufficientBalance() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrWalletInactive() *AppError {
	return New("WAL_002", "Wallet is inactive", http.StatusConflict)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_003", "Wallet not found", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_004", "Amount must be positive with at most two decimal places", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("WAL_005", "Cannot transfer to the same wallet owner", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("WAL_006", "Currency does not match the other side of the movement", http.StatusBadRequest)
}

// ---- Card provisioning (CARD) ----

func ErrDuplicateCard() *AppError {
	return New("CARD_001", "Card is already registered", http.StatusConflict)
}

func ErrInvalidOtp() *AppError {
	return New("CARD_002", "Invalid OTP", http.StatusBadRequest)
}

func ErrOtpAttemptsExceeded() *AppError {
	return New("CARD_003", "Too many OTP attempts", http.StatusTooManyRequests)
}

func ErrCardNotFound() *AppError {
	return New("CARD_004", "Card not found", http.StatusNotFound)
}

func ErrCardNotActive() *AppError {
	return New("CARD_005", "Card is not active", http.StatusConflict)
}

func ErrTokenRevocation(err error) *AppError {
	return Wrap("CARD_006", "Card token could not be revoked", http.StatusBadGateway, err)
}

// ---- Merchant onboarding (MER) ----

func ErrDuplicateRequest() *AppError {
	return New("MER_001", "A merchant request already exists for this device and card", http.StatusConflict)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("MER_002", fmt.Sprintf("Invalid status transition from %s to %s", from, to), http.StatusConflict)
}

func ErrRequestNotFound() *AppError {
	return New("MER_003", "Merchant request not found", http.StatusNotFound)
}

func ErrNotRequestOwner() *AppError {
	return New("MER_004", "Merchant request belongs to another owner", http.StatusForbidden)
}

func ErrMerchantNotApproved() *AppError {
	return New("MER_005", "Device is not an approved merchant", http.StatusForbidden)
}

// ---- Payments (PAY) ----

func ErrInvalidCryptogram() *AppError {
	return New("PAY_001", "Payment cryptogram is required", http.StatusBadRequest)
}

func ErrIdempotencyConflict() *AppError {
	return New("PAY_002", "Idempotency key reused with a different request", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Missing or malformed authorization header", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_003", "Insufficient permissions", http.StatusForbidden)
}

// ---- Request validation (VAL / SEC) ----

func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New("SEC_001", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrProviderUnavailable(err error) *AppError {
	return Wrap("SYS_002", "External provider unavailable", http.StatusBadGateway, err)
}
