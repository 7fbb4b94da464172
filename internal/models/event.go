package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrTicketOversold is returned when sold tickets would exceed the available quantity.
var ErrTicketOversold = errors.New("quantity sold cannot exceed quantity total")

// Event is a campus event, optionally ticketed.
type Event struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Title           string        `gorm:"size:255;not null" json:"title"`
	Description     string        `gorm:"type:text;not null" json:"description"`
	Location        string        `gorm:"size:255;not null" json:"location"`
	EventDate       time.Time     `gorm:"index;not null" json:"event_date"`
	EventType       string        `gorm:"size:64;not null" json:"event_type"`
	ImageURL        string        `gorm:"size:512" json:"image_url"`
	IsPublished     bool          `gorm:"not null;default:false;index" json:"is_published"`
	RequiresTickets bool          `gorm:"not null;default:false" json:"requires_tickets"`
	Price           float64       `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	MaxTickets      *int          `json:"max_tickets"`
	CreatedBy       uint          `gorm:"not null;index" json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Tickets         []EventTicket `gorm:"constraint:OnDelete:CASCADE" json:"tickets,omitempty"`
}

// IsPaid reports whether creating the event is charged against the creator's wallet.
func (e Event) IsPaid() bool {
	return e.RequiresTickets && e.Price > 0
}

// EventTicket is a ticket tier on an event.
type EventTicket struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       uint      `gorm:"not null;index" json:"event_id"`
	TicketType    string    `gorm:"size:64;not null" json:"ticket_type"`
	Price         float64   `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	QuantityTotal int       `gorm:"not null" json:"quantity_total"`
	QuantitySold  int       `gorm:"not null;default:0" json:"quantity_sold"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeSave keeps sold quantity within bounds.
func (t *EventTicket) BeforeSave(tx *gorm.DB) error {
	if t.QuantitySold < 0 || t.QuantityTotal < 0 {
		return errors.New("ticket quantities cannot be negative")
	}
	if t.QuantitySold > t.QuantityTotal {
		return ErrTicketOversold
	}
	return nil
}

// Available returns the number of unsold tickets.
func (t EventTicket) Available() int {
	return t.QuantityTotal - t.QuantitySold
}
