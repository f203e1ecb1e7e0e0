package domain

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidAmount(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"positive two digits", "40.00", true},
		{"positive integer", "10", true},
		{"one cent", "0.01", true},
		{"zero", "0", false},
		{"negative", "-5.00", false},
		{"three fraction digits", "1.005", false},
		{"trailing zeros beyond scale", "1.500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAmount(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "1.47", RoundMoney(decimal.RequireFromString("1.465")).StringFixed(2))
	assert.Equal(t, "0.30", RoundMoney(decimal.RequireFromString("0.3")).StringFixed(2))
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
	assert.True(t, ValidCurrency("EUR"))
	assert.False(t, ValidCurrency("eu"))
	assert.False(t, ValidCurrency("US1"))
}

func TestWallet_CanCover(t *testing.T) {
	w := &Wallet{Balance: decimal.RequireFromString("100.00")}

	assert.True(t, w.CanCover(decimal.RequireFromString("100.00")))
	assert.True(t, w.CanCover(decimal.RequireFromString("99.99")))
	assert.False(t, w.CanCover(decimal.RequireFromString("100.01")))
}

func TestDirection_Valid(t *testing.T) {
	assert.True(t, DirectionDebit.Valid())
	assert.True(t, DirectionCredit.Valid())
	assert.False(t, Direction("SIDEWAYS").Valid())
}

func TestTransaction_IsDebit(t *testing.T) {
	out := &Transaction{Total: decimal.RequireFromString("-40.00")}
	in := &Transaction{Total: decimal.RequireFromString("40.00")}

	assert.True(t, out.IsDebit())
	assert.False(t, in.IsDebit())
}

func TestCard_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from CardStatus
		to   CardStatus
		want bool
	}{
		{CardStatusPending, CardStatusActive, true},
		{CardStatusPending, CardStatusRemoved, true},
		{CardStatusActive, CardStatusRemoved, true},
		{CardStatusActive, CardStatusPending, false},
		{CardStatusRemoved, CardStatusActive, false},
		{CardStatusRemoved, CardStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &Card{Status: tt.from}
			assert.Equal(t, tt.want, c.CanTransitionTo(tt.to))
		})
	}
}

func TestRawCard_NeverPrintsPAN(t *testing.T) {
	raw := RawCard{PAN: "4111111111111111", CVV: "123", ExpiryMonth: 12, ExpiryYear: 2030, Scheme: "visa"}

	for _, out := range []string{raw.String(), fmt.Sprintf("%v", raw), fmt.Sprintf("%+v", raw), fmt.Sprintf("%#v", raw)} {
		assert.NotContains(t, out, "4111111111111111")
		assert.NotContains(t, out, "123}")
		assert.Contains(t, out, "1111")
	}
	assert.Equal(t, "1111", raw.LastFour())
}

func TestMerchantRequest_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from MerchantRequestStatus
		to   MerchantRequestStatus
		want bool
	}{
		{MerchantRequestPending, MerchantRequestApproved, true},
		{MerchantRequestPending, MerchantRequestRejected, true},
		{MerchantRequestPending, MerchantRequestCancelled, true},
		{MerchantRequestUnderReview, MerchantRequestCancelled, true},
		{MerchantRequestUnderReview, MerchantRequestApproved, false},
		{MerchantRequestApproved, MerchantRequestRejected, false},
		{MerchantRequestApproved, MerchantRequestCancelled, false},
		{MerchantRequestRejected, MerchantRequestApproved, false},
		{MerchantRequestCancelled, MerchantRequestPending, false},
		{MerchantRequestMoreInfoRequired, MerchantRequestCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			r := &MerchantRequest{Status: tt.from}
			assert.Equal(t, tt.want, r.CanTransitionTo(tt.to))
		})
	}
}

func TestMerchantRequest_IsOpen(t *testing.T) {
	assert.True(t, (&MerchantRequest{Status: MerchantRequestPending}).IsOpen())
	assert.True(t, (&MerchantRequest{Status: MerchantRequestApproved}).IsOpen())
	assert.False(t, (&MerchantRequest{Status: MerchantRequestRejected}).IsOpen())
	assert.False(t, (&MerchantRequest{Status: MerchantRequestCancelled}).IsOpen())
}

func TestAuthorizationResult_Approved(t *testing.T) {
	assert.True(t, (&AuthorizationResult{Status: AuthorizationApproved}).Approved())
	assert.False(t, (&AuthorizationResult{Status: AuthorizationDeclined}).Approved())
}

func TestBuildTransferIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:transfer:abc", BuildTransferIdempotencyKey(id, "abc"))
}
