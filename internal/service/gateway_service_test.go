package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

const testWebhookBase = "https://example.supabase.co/functions/v1/"

func newGatewayFixture(t *testing.T, lock *repository.KeyLock) (GatewayService, *memoryActivityRepo) {
	t.Helper()
	db := setupServiceDB(t, &models.PaymentGateway{})
	activity := &memoryActivityRepo{}
	svc := NewGatewayService(
		repository.NewPaymentGatewayRepository(db),
		NewActivityService(activity, testValidator(), testLogger()),
		lock,
		testWebhookBase,
		testValidator(),
		testLogger(),
	)
	return svc, activity
}

func TestGatewayServiceListReconcilesGrid(t *testing.T) {
	svc, _ := newGatewayFixture(t, nil)
	ctx := context.Background()

	resp, err := svc.List(ctx, actorAdmin)
	require.NoError(t, err)
	require.Len(t, resp.Gateways, 6)
	require.Equal(t, "flutterwave", resp.Gateways[0].Provider)
	require.Equal(t, "test", resp.Gateways[0].Mode)
	require.Equal(t, "https://example.supabase.co/functions/v1/flutterwave-webhook", resp.Gateways[0].WebhookURL)
	require.False(t, resp.Gateways[0].Configured)
	require.False(t, resp.Status.ProductionReady)

	_, err = svc.List(ctx, actorModerator)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGatewayServiceSaveValidatesEnabledKeys(t *testing.T) {
	svc, activity := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:  "Paystack",
		Mode:      "live",
		Enabled:   true,
		SecretKey: ptrString("pk_live_1234567890"),
	})
	require.ErrorIs(t, err, ErrInvalidGatewayKey)
	var keyErr *GatewayKeyError
	require.True(t, errors.As(err, &keyErr))
	require.Equal(t, "Paystack secret keys must start with sk_test_ or sk_live_", keyErr.Error())

	_, err = svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:  "paystack",
		Mode:      "live",
		Enabled:   true,
		SecretKey: ptrString("sk_live_000000abcdef"),
	})
	require.True(t, errors.As(err, &keyErr))
	require.True(t, keyErr.Validation.IsPlaceholder)

	// disabled rows may hold a draft key
	draft, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:  "paystack",
		Mode:      "live",
		SecretKey: ptrString("draft"),
	})
	require.NoError(t, err)
	require.False(t, draft.Enabled)
	require.True(t, draft.HasSecretKey)
	require.Len(t, activity.entries, 1)
	require.Equal(t, true, activity.entries[0].Metadata["key_rotated"])
}

func TestGatewayServiceSaveKeepsStoredSecret(t *testing.T) {
	svc, _ := newGatewayFixture(t, nil)
	ctx := context.Background()

	first, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:      "flutterwave",
		Mode:          "live",
		Enabled:       true,
		PublicKey:     "FLWPUBK-abc",
		SecretKey:     ptrString("FLWSECK-abcdef123456"),
		EncryptionKey: ptrString("enc-key-1"),
	})
	require.NoError(t, err)
	require.True(t, first.KeyStatus.Valid)
	require.Equal(t, "Live key configured", first.KeyStatus.Message)
	require.Equal(t, "****3456", first.SecretKeyHint)

	second, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:     "flutterwave",
		Mode:         "live",
		Enabled:      true,
		PublicKey:    "FLWPUBK-xyz",
		BusinessName: "Campus Events",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "FLWPUBK-xyz", second.PublicKey)
	require.Equal(t, "****3456", second.SecretKeyHint)
	require.True(t, second.HasEncryptionKey)

	list, err := svc.List(ctx, actorAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, list.Status.TotalEnabled)
	require.Equal(t, 1, list.Status.ValidLive)
	require.True(t, list.Status.ProductionReady)
}

func TestGatewayServiceSaveKeepsCustomWebhook(t *testing.T) {
	svc, _ := newGatewayFixture(t, nil)
	ctx := context.Background()

	custom, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:   "korapay",
		Mode:       "test",
		WebhookURL: "https://hooks.campus.test/korapay",
	})
	require.NoError(t, err)
	require.Equal(t, "https://hooks.campus.test/korapay", custom.WebhookURL)

	resaved, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{
		Provider:     "korapay",
		Mode:         "test",
		BusinessName: "Campus Events",
	})
	require.NoError(t, err)
	require.Equal(t, custom.ID, resaved.ID)
	require.Equal(t, "https://hooks.campus.test/korapay", resaved.WebhookURL)

	fresh, err := svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{Provider: "korapay", Mode: "live"})
	require.NoError(t, err)
	require.Equal(t, "https://example.supabase.co/functions/v1/korapay-webhook", fresh.WebhookURL)
}

func TestGatewayServiceSaveBusyLock(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	lock := repository.NewKeyLock(client, "test", time.Minute)
	svc, _ := newGatewayFixture(t, lock)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "gateway:korapay:test")
	require.NoError(t, err)

	_, err = svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{Provider: "korapay", Mode: "test"})
	require.ErrorIs(t, err, ErrBusy)

	release()
	_, err = svc.Save(ctx, actorAdmin, dto.GatewaySaveRequest{Provider: "korapay", Mode: "test"})
	require.NoError(t, err)
}

func TestGatewayServiceValidateKey(t *testing.T) {
	svc, _ := newGatewayFixture(t, nil)

	result, err := svc.ValidateKey(context.Background(), actorAdmin, dto.KeyValidateRequest{Provider: "korapay", SecretKey: "sk_test_abcdefgh"})
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "Test key configured", result.Message)

	_, err = svc.ValidateKey(context.Background(), authz.NewActor(1, "student"), dto.KeyValidateRequest{Provider: "korapay"})
	require.ErrorIs(t, err, ErrForbidden)
}
