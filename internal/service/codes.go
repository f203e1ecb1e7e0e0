package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode returns prefix followed by n random upper-case alphanumerics.
func generateCode(prefix string, n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return prefix + string(b), nil
}

func newAuthCode() (string, error)          { return generateCode("AUTH-", 6) }
func newTransferReference() (string, error) { return generateCode("TRX-", 10) }
func newPaymentReference() (string, error)  { return generateCode("PAY-", 10) }

// newOtpCode returns a six-digit one-time code.
func newOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func newTransactionID() string {
	return "TXN-" + uuid.NewString()
}
