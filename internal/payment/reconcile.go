package payment

import (
	"strings"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Status aggregates the reconciled gateway grid.
type Status struct {
	TotalEnabled    int  `json:"total_enabled"`
	LiveEnabled     int  `json:"live_enabled"`
	TestEnabled     int  `json:"test_enabled"`
	ValidLive       int  `json:"valid_live"`
	ProductionReady bool `json:"production_ready"`
}

// WebhookURL builds the callback URL registered with a provider: {base}/{provider}-webhook.
func WebhookURL(base, provider string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + normalize(provider) + "-webhook"
}

// Reconcile returns exactly one row per provider and mode, in Providers() x Modes() order.
// Stored rows are matched case-insensitively; gaps are filled with disabled rows that carry
// no credentials and the computed webhook URL.
func Reconcile(rows []models.PaymentGateway, webhookBase string) []models.PaymentGateway {
	index := make(map[string]models.PaymentGateway, len(rows))
	for _, row := range rows {
		key := gridKey(row.Provider, row.Mode)
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = row
	}

	grid := make([]models.PaymentGateway, 0, len(Providers())*len(Modes()))
	for _, provider := range Providers() {
		for _, mode := range Modes() {
			row, ok := index[gridKey(provider, mode)]
			if !ok {
				row = models.PaymentGateway{Enabled: false}
			}
			row.Provider = provider
			row.Mode = mode
			if strings.TrimSpace(row.WebhookURL) == "" {
				row.WebhookURL = WebhookURL(webhookBase, provider)
			}
			grid = append(grid, row)
		}
	}

	return grid
}

// Summarize counts enabled gateways. Production readiness requires at least one enabled
// live gateway whose secret key validates and is not a placeholder.
func Summarize(rows []models.PaymentGateway) Status {
	var status Status
	for _, row := range rows {
		if !row.Enabled {
			continue
		}
		status.TotalEnabled++

		switch normalize(row.Mode) {
		case models.GatewayModeLive:
			status.LiveEnabled++
			check := ValidateAPIKey(row.Provider, row.SecretKey)
			if check.Valid && !check.IsPlaceholder {
				status.ValidLive++
			}
		case models.GatewayModeTest:
			status.TestEnabled++
		}
	}
	status.ProductionReady = status.ValidLive > 0
	return status
}

func gridKey(provider, mode string) string {
	return normalize(provider) + ":" + normalize(mode)
}
