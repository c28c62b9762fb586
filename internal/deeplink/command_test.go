package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaymentReturn(t *testing.T) {
	assert.Equal(t, Command{Kind: KindPaymentReturn}, Parse("app://payment-complete"))
	assert.Equal(t, Command{Kind: KindPaymentReturn}, Parse("app://payment-complete/"))
	assert.Equal(t, Command{Kind: KindPaymentReturn}, Parse("https://links.example.com/payment-complete"))
}

func TestParseReferral(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Command
	}{
		{
			name: "lowercase code normalized to uppercase",
			url:  "app://ref/ab12cd34",
			want: Command{Kind: KindReferral, ReferralCode: "AB12CD34"},
		},
		{
			name: "short path form",
			url:  "app://r/AB12CD34",
			want: Command{Kind: KindReferral, ReferralCode: "AB12CD34"},
		},
		{
			name: "mixed case",
			url:  "app://r/aB12Cd34",
			want: Command{Kind: KindReferral, ReferralCode: "AB12CD34"},
		},
		{name: "too short", url: "app://r/ab12", want: Command{Kind: KindUnrecognized}},
		{name: "too long", url: "app://r/ab12cd34ef", want: Command{Kind: KindUnrecognized}},
		{name: "non-alphanumeric", url: "app://r/ab12cd3!", want: Command{Kind: KindUnrecognized}},
		{name: "missing code", url: "app://r", want: Command{Kind: KindUnrecognized}},
		{name: "extra segments", url: "app://r/ab12cd34/extra", want: Command{Kind: KindUnrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.url))
		})
	}
}

func TestParseTopUpSuccess(t *testing.T) {
	orderID := "6b4b1c6e-6a52-4bd3-9f68-1f3f0a1f8b7e"

	cmd := Parse("app://dashboard?topup=success&order_id=" + orderID)
	assert.Equal(t, KindTopUpSuccess, cmd.Kind)
	assert.Equal(t, orderID, cmd.TopUpOrderID)

	// The order identifier must be a well-formed UUID before it is trusted.
	assert.Equal(t, KindUnrecognized, Parse("app://dashboard?topup=success&order_id=not-a-uuid").Kind)
	assert.Equal(t, KindUnrecognized, Parse("app://dashboard?topup=success").Kind)
	assert.Equal(t, KindUnrecognized, Parse("app://dashboard").Kind)
	assert.Equal(t, KindUnrecognized, Parse("app://dashboard?topup=pending&order_id="+orderID).Kind)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not a url at all",
		"app://",
		"app://unknown-path",
		"app://payment-complete/extra/segments",
		"://missing-scheme",
	}

	for _, raw := range inputs {
		assert.Equal(t, KindUnrecognized, Parse(raw).Kind, "input %q", raw)
	}
}
