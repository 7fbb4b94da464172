package dto

import (
	"strconv"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/wizard"
)

// EventRequest is the full event payload sent by the wizard on submit.
// A nil Price means the organiser left the field blank.
type EventRequest struct {
	Title           string     `json:"title" validate:"max=255"`
	Description     string     `json:"description" validate:"max=10000"`
	Location        string     `json:"location" validate:"max=255"`
	EventDate       *time.Time `json:"event_date"`
	EventType       string     `json:"event_type" validate:"max=64"`
	ImageURL        string     `json:"image_url" validate:"omitempty,url,max=512"`
	IsPublished     bool       `json:"is_published"`
	RequiresTickets bool       `json:"requires_tickets"`
	Price           *float64   `json:"price"`
	MaxTickets      *int       `json:"max_tickets" validate:"omitempty,gte=0"`
}

// Form converts the request into the wizard's draft representation.
func (r EventRequest) Form() wizard.EventForm {
	form := wizard.EventForm{
		Title:           r.Title,
		Description:     r.Description,
		EventType:       r.EventType,
		Location:        r.Location,
		EventDate:       r.EventDate,
		ImageURL:        r.ImageURL,
		RequiresTickets: r.RequiresTickets,
		MaxTickets:      r.MaxTickets,
		IsPublished:     r.IsPublished,
	}
	if r.Price != nil {
		form.Price = strconv.FormatFloat(*r.Price, 'f', -1, 64)
	}
	return form
}

// StepValidateRequest asks whether the wizard may advance past a step. EventID is set
// when an existing event is being edited.
type StepValidateRequest struct {
	Step    int          `json:"step" validate:"required,min=1,max=4"`
	EventID *uint        `json:"event_id" validate:"omitempty,gt=0"`
	Event   EventRequest `json:"event"`
}

// StepValidateResponse returns the gate outcome together with the wallet figures it used.
type StepValidateResponse struct {
	wizard.Result
	Fee     float64 `json:"fee"`
	Balance float64 `json:"balance"`
}

// EventListQuery filters the event listing.
type EventListQuery struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
	Type     string `query:"type" validate:"omitempty,max=64"`
	Mine     bool   `query:"mine"`
}

// TicketRequest creates or updates a ticket tier.
type TicketRequest struct {
	TicketType    string  `json:"ticket_type" validate:"required,min=1,max=64"`
	Price         float64 `json:"price" validate:"gte=0"`
	QuantityTotal int     `json:"quantity_total" validate:"gte=0"`
	IsActive      *bool   `json:"is_active"`
}

// TicketResponse describes a ticket tier.
type TicketResponse struct {
	ID            uint    `json:"id"`
	EventID       uint    `json:"event_id"`
	TicketType    string  `json:"ticket_type"`
	Price         float64 `json:"price"`
	QuantityTotal int     `json:"quantity_total"`
	QuantitySold  int     `json:"quantity_sold"`
	Available     int     `json:"available"`
	IsActive      bool    `json:"is_active"`
}

// EventResponse describes an event.
type EventResponse struct {
	ID              uint             `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Location        string           `json:"location"`
	EventDate       time.Time        `json:"event_date"`
	EventType       string           `json:"event_type"`
	ImageURL        string           `json:"image_url"`
	IsPublished     bool             `json:"is_published"`
	RequiresTickets bool             `json:"requires_tickets"`
	Price           float64          `json:"price"`
	MaxTickets      *int             `json:"max_tickets"`
	IsPaid          bool             `json:"is_paid"`
	CreatedBy       uint             `json:"created_by"`
	CanEdit         bool             `json:"can_edit"`
	FeeCharged      float64          `json:"fee_charged,omitempty"`
	Tickets         []TicketResponse `json:"tickets"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// EventListResponse wraps a page of events.
type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// NewTicketResponse converts a ticket tier.
func NewTicketResponse(model models.EventTicket) TicketResponse {
	return TicketResponse{
		ID:            model.ID,
		EventID:       model.EventID,
		TicketType:    model.TicketType,
		Price:         model.Price,
		QuantityTotal: model.QuantityTotal,
		QuantitySold:  model.QuantitySold,
		Available:     model.Available(),
		IsActive:      model.IsActive,
	}
}

// NewEventResponse converts an event including any preloaded tickets.
func NewEventResponse(model models.Event) EventResponse {
	tickets := make([]TicketResponse, 0, len(model.Tickets))
	for _, ticket := range model.Tickets {
		tickets = append(tickets, NewTicketResponse(ticket))
	}
	return EventResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Location:        model.Location,
		EventDate:       model.EventDate,
		EventType:       model.EventType,
		ImageURL:        model.ImageURL,
		IsPublished:     model.IsPublished,
		RequiresTickets: model.RequiresTickets,
		Price:           model.Price,
		MaxTickets:      model.MaxTickets,
		IsPaid:          model.IsPaid(),
		CreatedBy:       model.CreatedBy,
		Tickets:         tickets,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
