package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

const walletHistoryLimit = 20

// WalletService exposes wallet balances and admin top-ups.
type WalletService interface {
	Get(ctx context.Context, actor authz.Actor) (dto.WalletResponse, error)
	Balance(ctx context.Context, userID uint) (float64, error)
	Credit(ctx context.Context, actor authz.Actor, userID uint, req dto.WalletCreditRequest) (dto.WalletResponse, error)
}

type walletService struct {
	repo      repository.WalletRepository
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewWalletService constructs the wallet service.
func NewWalletService(repo repository.WalletRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) WalletService {
	return &walletService{
		repo:      repo,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "wallet_service").Logger(),
	}
}

func (s *walletService) Get(ctx context.Context, actor authz.Actor) (dto.WalletResponse, error) {
	if !actor.Authenticated() {
		return dto.WalletResponse{}, ErrUnauthenticated
	}
	return s.load(ctx, actor.ID)
}

func (s *walletService) Balance(ctx context.Context, userID uint) (float64, error) {
	wallet, err := s.repo.Find(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *walletService) Credit(ctx context.Context, actor authz.Actor, userID uint, req dto.WalletCreditRequest) (dto.WalletResponse, error) {
	if !authz.CanManageSettings(actor) {
		return dto.WalletResponse{}, ErrForbidden
	}
	if userID == 0 {
		return dto.WalletResponse{}, fmt.Errorf("user id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.WalletResponse{}, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Wallet top-up"
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = fmt.Sprintf("admin:%d", actor.ID)
	}

	if _, err := s.repo.Credit(ctx, userID, req.Amount, description, reference); err != nil {
		return dto.WalletResponse{}, err
	}

	if s.activity != nil {
		entityID := userID
		if _, err := s.activity.Record(ctx, ActivityEntry{
			Actor:      actor,
			Action:     "wallet.credited",
			EntityType: "wallet",
			EntityID:   &entityID,
			Metadata:   map[string]interface{}{"amount": req.Amount, "reference": reference},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record wallet activity")
		}
	}

	return s.load(ctx, userID)
}

func (s *walletService) load(ctx context.Context, userID uint) (dto.WalletResponse, error) {
	wallet, err := s.repo.Find(ctx, userID)
	if err != nil {
		return dto.WalletResponse{}, err
	}
	transactions, err := s.repo.ListTransactions(ctx, userID, walletHistoryLimit)
	if err != nil {
		return dto.WalletResponse{}, err
	}
	return dto.NewWalletResponse(userID, wallet, transactions), nil
}
