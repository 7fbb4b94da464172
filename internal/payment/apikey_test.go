package payment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		key      string
		want     KeyValidation
	}{
		{"empty key", "paystack", "", KeyValidation{Message: "Secret key is missing or too short"}},
		{"short key", "paystack", "sk_live_", KeyValidation{Message: "Secret key is missing or too short"}},
		{"public key as secret", "paystack", "pk_live_abcdef123456", KeyValidation{Message: "Paystack secret keys must start with sk_test_ or sk_live_"}},
		{"paystack live", "paystack", "sk_live_abcdef123456", KeyValidation{Valid: true, Message: "Live key configured"}},
		{"paystack test", "Paystack", "sk_test_abcdef123456", KeyValidation{Valid: true, Message: "Test key configured"}},
		{"korapay placeholder zeros", "korapay", "sk_test_000000", KeyValidation{Message: "Placeholder key detected", IsPlaceholder: true}},
		{"placeholder sentinel", "paystack", "sk_live_xxx", KeyValidation{Message: "Placeholder key detected", IsPlaceholder: true}},
		{"korapay wrong prefix", "korapay", "kora_live_abcdef", KeyValidation{Message: "Korapay secret keys must start with sk_test_ or sk_live_"}},
		{"flutterwave live", "flutterwave", "FLWSECK-123456789", KeyValidation{Valid: true, Message: "Live key configured"}},
		{"flutterwave test", "flutterwave", "FLWSECK_TEST-abcdef123", KeyValidation{Valid: true, Message: "Test key configured"}},
		{"flutterwave wrong prefix", "flutterwave", "sk_live_abcdef123456", KeyValidation{Message: "Flutterwave secret keys must start with FLWSECK_TEST or FLWSECK-"}},
		{"unknown provider", "stripe", "sk_live_abcdef123456", KeyValidation{Message: "Unsupported payment provider"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateAPIKey(tc.provider, tc.key)
			require.Equal(t, tc.want, got)
			require.Equal(t, got, ValidateAPIKey(tc.provider, tc.key), "validation must be deterministic")
		})
	}
}

func TestIsProvider(t *testing.T) {
	require.True(t, IsProvider("KORAPAY"))
	require.False(t, IsProvider("stripe"))
}
