package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// ErrInsufficientBalance is returned when a wallet cannot cover a charge.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// EventFilter narrows event listings. Unpublished events are only returned to their creator.
type EventFilter struct {
	Page      int
	PageSize  int
	Type      string
	ViewerID  uint
	OnlyMine  bool
	ShowDraft bool
}

// EventRepository persists events and their ticket tiers.
type EventRepository interface {
	CreateWithFee(ctx context.Context, event *models.Event, fee float64) error
	FindByID(ctx context.Context, id uint) (models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error)
	CreateTicket(ctx context.Context, ticket *models.EventTicket) error
	FindTicket(ctx context.Context, eventID, ticketID uint) (models.EventTicket, error)
	UpdateTicket(ctx context.Context, ticket *models.EventTicket) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository constructs the event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// CreateWithFee inserts the event and, when fee is positive, debits the creator's wallet in
// the same transaction. The debit only applies when the balance covers the fee, so two
// concurrent submissions can never overdraw the wallet.
func (r *eventRepository) CreateWithFee(ctx context.Context, event *models.Event, fee float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fee > 0 {
			result := tx.Model(&models.Wallet{}).
				Where("user_id = ? AND balance >= ?", event.CreatedBy, fee).
				UpdateColumn("balance", gorm.Expr("balance - ?", fee))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrInsufficientBalance
			}
		}

		if err := tx.Create(event).Error; err != nil {
			return err
		}

		if fee <= 0 {
			return nil
		}

		var wallet models.Wallet
		if err := tx.Where("user_id = ?", event.CreatedBy).First(&wallet).Error; err != nil {
			return err
		}

		return tx.Create(&models.WalletTransaction{
			WalletID:    wallet.ID,
			UserID:      event.CreatedBy,
			Type:        models.WalletDebit,
			Amount:      fee,
			Description: "Event creation fee",
			Reference:   fmt.Sprintf("event:%d", event.ID),
		}).Error
	})
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&event, id).Error; err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Omit("Tickets").Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventTicket{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Event{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})

	switch {
	case filter.OnlyMine:
		query = query.Where("created_by = ?", filter.ViewerID)
	case filter.ShowDraft:
	case filter.ViewerID > 0:
		query = query.Where("is_published = ? OR created_by = ?", true, filter.ViewerID)
	default:
		query = query.Where("is_published = ?", true)
	}

	if filter.Type != "" {
		query = query.Where("event_type = ?", filter.Type)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	if err := paginate(query, filter.Page, filter.PageSize).
		Preload("Tickets").
		Order("event_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *eventRepository) CreateTicket(ctx context.Context, ticket *models.EventTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *eventRepository) FindTicket(ctx context.Context, eventID, ticketID uint) (models.EventTicket, error) {
	var ticket models.EventTicket
	if err := r.db.WithContext(ctx).Where("event_id = ? AND id = ?", eventID, ticketID).First(&ticket).Error; err != nil {
		return models.EventTicket{}, err
	}
	return ticket, nil
}

func (r *eventRepository) UpdateTicket(ctx context.Context, ticket *models.EventTicket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}
