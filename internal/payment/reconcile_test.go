package payment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const testBase = "https://project.functions.example.co/functions/v1/"

func TestWebhookURL(t *testing.T) {
	require.Equal(t, "https://project.functions.example.co/functions/v1/paystack-webhook", WebhookURL(testBase, "Paystack"))
}

func TestReconcileAlwaysProducesFullGrid(t *testing.T) {
	subsets := [][]models.PaymentGateway{
		nil,
		{{ID: 1, Provider: "PayStack", Mode: "live", Enabled: true, SecretKey: "sk_live_abcdef123456"}},
		{
			{ID: 1, Provider: "flutterwave", Mode: "test"},
			{ID: 2, Provider: "korapay", Mode: "live", WebhookURL: "https://custom.example/hook"},
			{ID: 3, Provider: "korapay", Mode: "live"},
			{ID: 4, Provider: "unknown", Mode: "live", Enabled: true},
		},
	}

	for _, rows := range subsets {
		grid := Reconcile(rows, testBase)
		require.Len(t, grid, 6)

		seen := map[string]int{}
		for _, row := range grid {
			seen[row.Provider+":"+row.Mode]++
			require.NotEmpty(t, row.WebhookURL)
		}
		for _, provider := range Providers() {
			for _, mode := range Modes() {
				require.Equal(t, 1, seen[provider+":"+mode], "%s:%s", provider, mode)
			}
		}
	}
}

func TestReconcileKeepsStoredRowsAndSynthesisesDefaults(t *testing.T) {
	rows := []models.PaymentGateway{
		{ID: 7, Provider: "KORAPAY", Mode: "live", Enabled: true, SecretKey: "sk_live_abcdef123456", WebhookURL: "https://custom.example/hook"},
	}

	grid := Reconcile(rows, testBase)

	require.Equal(t, "flutterwave", grid[0].Provider)
	require.Equal(t, "test", grid[0].Mode)
	require.False(t, grid[0].Enabled)
	require.Zero(t, grid[0].ID)
	require.Empty(t, grid[0].SecretKey)
	require.Equal(t, "https://project.functions.example.co/functions/v1/flutterwave-webhook", grid[0].WebhookURL)

	korapayLive := grid[3]
	require.Equal(t, uint(7), korapayLive.ID)
	require.Equal(t, "korapay", korapayLive.Provider)
	require.True(t, korapayLive.Enabled)
	require.Equal(t, "https://custom.example/hook", korapayLive.WebhookURL)
}

func TestSummarizeProductionReadiness(t *testing.T) {
	cases := []struct {
		name  string
		rows  []models.PaymentGateway
		ready bool
		want  Status
	}{
		{
			name: "nothing enabled",
			rows: nil,
			want: Status{},
		},
		{
			name: "only test gateways enabled",
			rows: []models.PaymentGateway{
				{Provider: "paystack", Mode: "test", Enabled: true, SecretKey: "sk_test_abcdef123456"},
				{Provider: "korapay", Mode: "test", Enabled: true, SecretKey: "sk_test_abcdef123456"},
			},
			want: Status{TotalEnabled: 2, TestEnabled: 2},
		},
		{
			name: "live placeholder does not count",
			rows: []models.PaymentGateway{{Provider: "paystack", Mode: "live", Enabled: true, SecretKey: "sk_live_000000abc"}},
			want: Status{TotalEnabled: 1, LiveEnabled: 1},
		},
		{
			name: "live disabled with valid key",
			rows: []models.PaymentGateway{{Provider: "paystack", Mode: "live", Enabled: false, SecretKey: "sk_live_abcdef123456"}},
			want: Status{},
		},
		{
			name: "valid live key",
			rows: []models.PaymentGateway{
				{Provider: "flutterwave", Mode: "live", Enabled: true, SecretKey: "FLWSECK-123456789"},
				{Provider: "paystack", Mode: "test", Enabled: true, SecretKey: "sk_test_abcdef123456"},
			},
			want: Status{TotalEnabled: 2, LiveEnabled: 1, TestEnabled: 1, ValidLive: 1, ProductionReady: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := Summarize(Reconcile(tc.rows, testBase))
			require.Equal(t, tc.want, status)
		})
	}
}
