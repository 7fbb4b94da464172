package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/observability"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/wizard"
)

// ErrTicketCapacity is returned when ticket tiers would exceed the event's maximum tickets.
var ErrTicketCapacity = errors.New("ticket quantities exceed the event's maximum tickets")

// FeeSource resolves the fee charged for creating a paid event.
type FeeSource interface {
	EventCreationFee(ctx context.Context) (dto.EventCreationFeeResponse, error)
}

// EventService implements the event wizard and ticket management.
type EventService interface {
	ValidateStep(ctx context.Context, actor authz.Actor, req dto.StepValidateRequest) (dto.StepValidateResponse, error)
	Create(ctx context.Context, actor authz.Actor, req dto.EventRequest) (dto.EventResponse, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req dto.EventRequest) (dto.EventResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
	Get(ctx context.Context, viewer authz.Actor, id uint) (dto.EventResponse, error)
	List(ctx context.Context, viewer authz.Actor, query dto.EventListQuery) (dto.EventListResponse, error)
	AddTicket(ctx context.Context, actor authz.Actor, eventID uint, req dto.TicketRequest) (dto.TicketResponse, error)
	UpdateTicket(ctx context.Context, actor authz.Actor, eventID, ticketID uint, req dto.TicketRequest) (dto.TicketResponse, error)
	DeactivateTicket(ctx context.Context, actor authz.Actor, eventID, ticketID uint) (dto.TicketResponse, error)
}

type eventService struct {
	repo      repository.EventRepository
	wallets   repository.WalletRepository
	fees      FeeSource
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	strict    *bluemonday.Policy
	rich      *bluemonday.Policy
}

// NewEventService constructs the event service.
func NewEventService(repo repository.EventRepository, wallets repository.WalletRepository, fees FeeSource, validate *validator.Validate, logger zerolog.Logger) EventService {
	return &eventService{
		repo:      repo,
		wallets:   wallets,
		fees:      fees,
		validator: validate,
		logger:    logger.With().Str("component", "event_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/campus-portal-api/internal/service/event"),
		strict:    bluemonday.StrictPolicy(),
		rich:      bluemonday.UGCPolicy(),
	}
}

func (s *eventService) ValidateStep(ctx context.Context, actor authz.Actor, req dto.StepValidateRequest) (dto.StepValidateResponse, error) {
	if !actor.Authenticated() {
		return dto.StepValidateResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StepValidateResponse{}, err
	}

	editing := req.EventID != nil
	if editing {
		event, err := s.repo.FindByID(ctx, *req.EventID)
		if err != nil {
			return dto.StepValidateResponse{}, err
		}
		if !authz.CanEditEvent(event, actor) {
			return dto.StepValidateResponse{}, ErrForbidden
		}
	}

	wallet, err := s.walletContext(ctx, actor, editing)
	if err != nil {
		return dto.StepValidateResponse{}, err
	}

	result := wizard.Evaluate(wizard.Step(req.Step), req.Event.Form(), wallet)
	return dto.StepValidateResponse{Result: result, Fee: wallet.Fee, Balance: wallet.Balance}, nil
}

func (s *eventService) Create(ctx context.Context, actor authz.Actor, req dto.EventRequest) (dto.EventResponse, error) {
	if !actor.Authenticated() {
		return dto.EventResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.EventResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "events.create", trace.WithAttributes(
		attribute.Int64("event.creator_id", int64(actor.ID)),
		attribute.Bool("event.requires_tickets", req.RequiresTickets),
	))
	defer span.End()

	form := req.Form()
	wallet, err := s.walletContext(spanCtx, actor, false)
	if err != nil {
		return dto.EventResponse{}, err
	}

	if err := s.gate(form, wallet); err != nil {
		outcome := "invalid"
		if errors.Is(err, ErrInsufficientBalance) {
			outcome = "insufficient_balance"
		}
		observability.EventCreations().WithLabelValues(outcome).Inc()
		return dto.EventResponse{}, err
	}

	event := models.Event{CreatedBy: actor.ID}
	s.apply(&event, form)

	fee := 0.0
	if event.IsPaid() {
		fee = wallet.Fee
	}
	span.SetAttributes(attribute.Float64("event.fee", fee))

	if err := s.repo.CreateWithFee(spanCtx, &event, fee); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			observability.EventCreations().WithLabelValues("insufficient_balance").Inc()
			return dto.EventResponse{}, ErrInsufficientBalance
		}
		span.RecordError(err)
		observability.EventCreations().WithLabelValues("error").Inc()
		return dto.EventResponse{}, err
	}
	observability.EventCreations().WithLabelValues("created").Inc()
	if fee > 0 {
		observability.WalletFeesCharged().Add(fee)
	}

	stored, err := s.repo.FindByID(spanCtx, event.ID)
	if err != nil {
		return dto.EventResponse{}, err
	}
	response := s.respond(stored, actor)
	response.FeeCharged = fee
	return response, nil
}

func (s *eventService) Update(ctx context.Context, actor authz.Actor, id uint, req dto.EventRequest) (dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EventResponse{}, err
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	if !authz.CanEditEvent(event, actor) {
		return dto.EventResponse{}, ErrForbidden
	}

	form := req.Form()
	if err := s.gate(form, wizard.WalletContext{Editing: true}); err != nil {
		return dto.EventResponse{}, err
	}

	s.apply(&event, form)
	if err := s.repo.Update(ctx, &event); err != nil {
		return dto.EventResponse{}, err
	}

	stored, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	return s.respond(stored, actor), nil
}

func (s *eventService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanEditEvent(event, actor) {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *eventService) Get(ctx context.Context, viewer authz.Actor, id uint) (dto.EventResponse, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	// drafts are invisible to everyone but their editors
	if !event.IsPublished && !authz.CanEditEvent(event, viewer) {
		return dto.EventResponse{}, gorm.ErrRecordNotFound
	}
	return s.respond(event, viewer), nil
}

func (s *eventService) List(ctx context.Context, viewer authz.Actor, query dto.EventListQuery) (dto.EventListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.EventListResponse{}, err
	}
	page, pageSize := normalizePage(query.Page, query.PageSize, 20)

	events, total, err := s.repo.List(ctx, repository.EventFilter{
		Page:      page,
		PageSize:  pageSize,
		Type:      strings.TrimSpace(query.Type),
		ViewerID:  viewer.ID,
		OnlyMine:  query.Mine && viewer.Authenticated(),
		ShowDraft: viewer.IsAdmin(),
	})
	if err != nil {
		return dto.EventListResponse{}, err
	}

	items := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, s.respond(event, viewer))
	}
	return dto.EventListResponse{Items: items, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *eventService) AddTicket(ctx context.Context, actor authz.Actor, eventID uint, req dto.TicketRequest) (dto.TicketResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TicketResponse{}, err
	}
	event, err := s.editableEvent(ctx, actor, eventID)
	if err != nil {
		return dto.TicketResponse{}, err
	}

	ticket := models.EventTicket{
		EventID:       eventID,
		TicketType:    strings.TrimSpace(s.strict.Sanitize(req.TicketType)),
		Price:         req.Price,
		QuantityTotal: req.QuantityTotal,
		IsActive:      true,
	}
	if req.IsActive != nil {
		ticket.IsActive = *req.IsActive
	}
	if err := checkCapacity(event, ticket); err != nil {
		return dto.TicketResponse{}, err
	}

	if err := s.repo.CreateTicket(ctx, &ticket); err != nil {
		return dto.TicketResponse{}, err
	}
	return dto.NewTicketResponse(ticket), nil
}

func (s *eventService) UpdateTicket(ctx context.Context, actor authz.Actor, eventID, ticketID uint, req dto.TicketRequest) (dto.TicketResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TicketResponse{}, err
	}
	event, err := s.editableEvent(ctx, actor, eventID)
	if err != nil {
		return dto.TicketResponse{}, err
	}

	ticket, err := s.repo.FindTicket(ctx, eventID, ticketID)
	if err != nil {
		return dto.TicketResponse{}, err
	}
	ticket.TicketType = strings.TrimSpace(s.strict.Sanitize(req.TicketType))
	ticket.Price = req.Price
	ticket.QuantityTotal = req.QuantityTotal
	if req.IsActive != nil {
		ticket.IsActive = *req.IsActive
	}
	if err := checkCapacity(event, ticket); err != nil {
		return dto.TicketResponse{}, err
	}

	if err := s.repo.UpdateTicket(ctx, &ticket); err != nil {
		return dto.TicketResponse{}, err
	}
	return dto.NewTicketResponse(ticket), nil
}

func (s *eventService) DeactivateTicket(ctx context.Context, actor authz.Actor, eventID, ticketID uint) (dto.TicketResponse, error) {
	if _, err := s.editableEvent(ctx, actor, eventID); err != nil {
		return dto.TicketResponse{}, err
	}
	ticket, err := s.repo.FindTicket(ctx, eventID, ticketID)
	if err != nil {
		return dto.TicketResponse{}, err
	}
	ticket.IsActive = false
	if err := s.repo.UpdateTicket(ctx, &ticket); err != nil {
		return dto.TicketResponse{}, err
	}
	return dto.NewTicketResponse(ticket), nil
}

func (s *eventService) editableEvent(ctx context.Context, actor authz.Actor, eventID uint) (models.Event, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if !authz.CanEditEvent(event, actor) {
		return models.Event{}, ErrForbidden
	}
	return event, nil
}

// walletContext loads the balance and fee the final gate needs. Editing skips the lookup.
func (s *eventService) walletContext(ctx context.Context, actor authz.Actor, editing bool) (wizard.WalletContext, error) {
	wallet := wizard.WalletContext{Editing: editing}
	if editing {
		return wallet, nil
	}

	fee, err := s.fees.EventCreationFee(ctx)
	if err != nil {
		return wizard.WalletContext{}, err
	}
	balance, err := s.wallets.Find(ctx, actor.ID)
	if err != nil {
		return wizard.WalletContext{}, fmt.Errorf("load wallet: %w", err)
	}
	wallet.Fee = fee.Fee
	wallet.Balance = balance.Balance
	return wallet, nil
}

// gate replays every wizard step against the submitted form.
func (s *eventService) gate(form wizard.EventForm, wallet wizard.WalletContext) error {
	for _, result := range wizard.EvaluateAll(form, wallet) {
		if result.CanAdvance {
			continue
		}
		if result.InsufficientBalance {
			return fmt.Errorf("%w: %s", ErrInsufficientBalance, result.Message)
		}
		return &StepError{Result: result}
	}
	return nil
}

func (s *eventService) apply(event *models.Event, form wizard.EventForm) {
	event.Title = strings.TrimSpace(s.strict.Sanitize(form.Title))
	event.Description = strings.TrimSpace(s.rich.Sanitize(form.Description))
	event.Location = strings.TrimSpace(s.strict.Sanitize(form.Location))
	event.EventType = strings.ToLower(strings.TrimSpace(form.EventType))
	event.ImageURL = strings.TrimSpace(form.ImageURL)
	event.IsPublished = form.IsPublished
	event.RequiresTickets = form.RequiresTickets
	event.MaxTickets = form.MaxTickets
	event.Price = 0
	if form.RequiresTickets {
		if price, ok := form.ParsedPrice(); ok {
			event.Price = price
		}
	}
	if form.EventDate != nil {
		event.EventDate = form.EventDate.UTC()
	} else {
		event.EventDate = time.Time{}
	}
}

func (s *eventService) respond(event models.Event, viewer authz.Actor) dto.EventResponse {
	response := dto.NewEventResponse(event)
	response.CanEdit = authz.CanEditEvent(event, viewer)
	return response
}

// checkCapacity keeps active tiers within MaxTickets when the event sets one.
func checkCapacity(event models.Event, candidate models.EventTicket) error {
	if event.MaxTickets == nil || !candidate.IsActive {
		return nil
	}
	total := candidate.QuantityTotal
	for _, ticket := range event.Tickets {
		if ticket.ID == candidate.ID || !ticket.IsActive {
			continue
		}
		total += ticket.QuantityTotal
	}
	if total > *event.MaxTickets {
		return ErrTicketCapacity
	}
	return nil
}
