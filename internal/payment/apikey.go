// Package payment validates gateway credentials and reconciles the provider/mode grid.
package payment

import (
	"strings"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const minKeyLength = 10

var placeholderKeys = map[string]struct{}{
	"sk_test_xxx": {},
	"sk_live_xxx": {},
}

// KeyValidation is the outcome of checking a provider secret key.
type KeyValidation struct {
	Valid         bool   `json:"valid"`
	Message       string `json:"message"`
	IsPlaceholder bool   `json:"is_placeholder"`
}

type keyRule struct {
	testPrefixes []string
	livePrefixes []string
	mismatch     string
}

var keyRules = map[string]keyRule{
	models.ProviderPaystack: {
		testPrefixes: []string{"sk_test_"},
		livePrefixes: []string{"sk_live_"},
		mismatch:     "Paystack secret keys must start with sk_test_ or sk_live_",
	},
	models.ProviderKorapay: {
		testPrefixes: []string{"sk_test_"},
		livePrefixes: []string{"sk_live_"},
		mismatch:     "Korapay secret keys must start with sk_test_ or sk_live_",
	},
	models.ProviderFlutterwave: {
		testPrefixes: []string{"FLWSECK_TEST"},
		livePrefixes: []string{"FLWSECK-"},
		mismatch:     "Flutterwave secret keys must start with FLWSECK_TEST or FLWSECK-",
	},
}

// Providers lists the supported providers in grid order.
func Providers() []string {
	return []string{models.ProviderFlutterwave, models.ProviderKorapay, models.ProviderPaystack}
}

// Modes lists the gateway modes in grid order.
func Modes() []string {
	return []string{models.GatewayModeTest, models.GatewayModeLive}
}

// IsProvider reports whether provider names a supported provider, ignoring case.
func IsProvider(provider string) bool {
	_, ok := keyRules[normalize(provider)]
	return ok
}

// ValidateAPIKey checks a secret key against the provider's format. It performs no I/O.
//
// Checks run in order: length, placeholder patterns, provider prefix. A placeholder is
// reported even when its prefix would otherwise be acceptable.
func ValidateAPIKey(provider, key string) KeyValidation {
	if len(key) < minKeyLength {
		return KeyValidation{Message: "Secret key is missing or too short"}
	}

	if _, ok := placeholderKeys[key]; ok || strings.Contains(key, "000000") {
		return KeyValidation{Message: "Placeholder key detected", IsPlaceholder: true}
	}

	rule, ok := keyRules[normalize(provider)]
	if !ok {
		return KeyValidation{Message: "Unsupported payment provider"}
	}

	// flutterwave test keys also begin with FLWSECK, so test prefixes are checked first
	if hasAnyPrefix(key, rule.testPrefixes) {
		return KeyValidation{Valid: true, Message: "Test key configured"}
	}
	if hasAnyPrefix(key, rule.livePrefixes) {
		return KeyValidation{Valid: true, Message: "Live key configured"}
	}

	return KeyValidation{Message: rule.mismatch}
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
