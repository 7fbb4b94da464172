// Package wizard evaluates the per-step gates of the event-creation flow.
package wizard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Step identifies a wizard page.
type Step int

// Wizard steps in navigation order.
const (
	StepBasicInfo Step = iota + 1
	StepLocationDate
	StepTicketing
	StepReview
)

// FirstStep and LastStep bound the linear flow.
const (
	FirstStep = StepBasicInfo
	LastStep  = StepReview
)

var stepNames = map[Step]string{
	StepBasicInfo:    "basic_info",
	StepLocationDate: "location_date",
	StepTicketing:    "ticketing",
	StepReview:       "review",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step_%d", int(s))
}

// Valid reports whether s is one of the four wizard steps.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// EventForm is the draft an organiser fills across the steps. Price stays a string
// because the form distinguishes an empty field from "0".
type EventForm struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	EventType       string     `json:"event_type"`
	Location        string     `json:"location"`
	EventDate       *time.Time `json:"event_date"`
	ImageURL        string     `json:"image_url"`
	RequiresTickets bool       `json:"requires_tickets"`
	Price           string     `json:"price"`
	MaxTickets      *int       `json:"max_tickets"`
	IsPublished     bool       `json:"is_published"`
}

// ParsedPrice returns the numeric price. ok is false when the field is blank or not a number.
func (f EventForm) ParsedPrice() (price float64, ok bool) {
	raw := strings.TrimSpace(f.Price)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// IsPaid reports whether the event charges for tickets.
func (f EventForm) IsPaid() bool {
	if !f.RequiresTickets {
		return false
	}
	price, ok := f.ParsedPrice()
	return ok && price > 0
}

// WalletContext carries what the final gate needs to know about the organiser.
type WalletContext struct {
	Editing bool
	Balance float64
	Fee     float64
}

// Result is the gate outcome for one step.
type Result struct {
	Step                Step   `json:"step"`
	Valid               bool   `json:"valid"`
	CanAdvance          bool   `json:"can_advance"`
	InsufficientBalance bool   `json:"insufficient_balance"`
	Message             string `json:"message,omitempty"`
}

// StepValid applies the field gate for a single step. The review step passes when every
// earlier step passes.
func StepValid(step Step, form EventForm) bool {
	_, ok := stepProblem(step, form)
	return ok
}

func stepProblem(step Step, form EventForm) (string, bool) {
	switch step {
	case StepBasicInfo:
		if blank(form.Title) || blank(form.Description) || blank(form.EventType) {
			return "Title, description and event type are required", false
		}
	case StepLocationDate:
		if blank(form.Location) || form.EventDate == nil || form.EventDate.IsZero() {
			return "Location and event date are required", false
		}
	case StepTicketing:
		if !form.RequiresTickets {
			return "", true
		}
		price, ok := form.ParsedPrice()
		if !ok {
			return "Enter a ticket price, use 0 for free tickets", false
		}
		if price < 0 {
			return "Ticket price cannot be negative", false
		}
		if form.MaxTickets != nil && *form.MaxTickets < 0 {
			return "Maximum tickets cannot be negative", false
		}
	case StepReview:
		for s := FirstStep; s < StepReview; s++ {
			if msg, ok := stepProblem(s, form); !ok {
				return msg, false
			}
		}
	default:
		return "Unknown wizard step", false
	}
	return "", true
}

// Evaluate runs the gate for step. On the review step a new paid event is also held back when
// the organiser's balance is below the creation fee. Edits are never wallet-gated.
// The balance check is advisory; the fee is charged when the event is stored.
func Evaluate(step Step, form EventForm, wallet WalletContext) Result {
	res := Result{Step: step}

	msg, ok := stepProblem(step, form)
	res.Valid = ok
	res.Message = msg
	if !ok {
		return res
	}

	if step == LastStep && !wallet.Editing && form.IsPaid() && wallet.Balance < wallet.Fee {
		res.InsufficientBalance = true
		res.Message = fmt.Sprintf("Insufficient wallet balance: creating a paid event costs %.2f, available %.2f", wallet.Fee, wallet.Balance)
		return res
	}

	res.CanAdvance = true
	return res
}

// EvaluateAll returns the result of every step in order.
func EvaluateAll(form EventForm, wallet WalletContext) []Result {
	results := make([]Result, 0, int(LastStep))
	for s := FirstStep; s <= LastStep; s++ {
		results = append(results, Evaluate(s, form, wallet))
	}
	return results
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}
