package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func completeForm() EventForm {
	date := time.Date(2026, 11, 20, 15, 0, 0, 0, time.UTC)
	return EventForm{
		Title:       "Engineering Week",
		Description: "Talks and demos",
		EventType:   "conference",
		Location:    "Main Auditorium",
		EventDate:   &date,
	}
}

func TestStepValid(t *testing.T) {
	cases := []struct {
		name   string
		step   Step
		mutate func(*EventForm)
		want   bool
	}{
		{"basic info complete", StepBasicInfo, func(*EventForm) {}, true},
		{"missing title", StepBasicInfo, func(f *EventForm) { f.Title = "  " }, false},
		{"missing event type", StepBasicInfo, func(f *EventForm) { f.EventType = "" }, false},
		{"location and date set", StepLocationDate, func(*EventForm) {}, true},
		{"missing date", StepLocationDate, func(f *EventForm) { f.EventDate = nil }, false},
		{"missing location", StepLocationDate, func(f *EventForm) { f.Location = "" }, false},
		{"no tickets ignores price", StepTicketing, func(f *EventForm) { f.Price = "abc" }, true},
		{"tickets without price", StepTicketing, func(f *EventForm) { f.RequiresTickets = true }, false},
		{"tickets with zero price", StepTicketing, func(f *EventForm) { f.RequiresTickets = true; f.Price = "0" }, true},
		{"tickets with price", StepTicketing, func(f *EventForm) { f.RequiresTickets = true; f.Price = "1500.50" }, true},
		{"negative price", StepTicketing, func(f *EventForm) { f.RequiresTickets = true; f.Price = "-1" }, false},
		{"non numeric price", StepTicketing, func(f *EventForm) { f.RequiresTickets = true; f.Price = "free" }, false},
		{"review requires earlier steps", StepReview, func(f *EventForm) { f.Description = "" }, false},
		{"review complete", StepReview, func(*EventForm) {}, true},
		{"unknown step", Step(9), func(*EventForm) {}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := completeForm()
			tc.mutate(&form)
			require.Equal(t, tc.want, StepValid(tc.step, form))
		})
	}
}

func TestEvaluateWalletGate(t *testing.T) {
	paid := completeForm()
	paid.RequiresTickets = true
	paid.Price = "2500"

	free := completeForm()
	free.RequiresTickets = true
	free.Price = "0"

	t.Run("new paid event with low balance is blocked", func(t *testing.T) {
		res := Evaluate(StepReview, paid, WalletContext{Balance: 1999, Fee: 2000})
		require.True(t, res.Valid)
		require.False(t, res.CanAdvance)
		require.True(t, res.InsufficientBalance)
		require.Contains(t, res.Message, "Insufficient wallet balance")
	})

	t.Run("editing the same event is never blocked", func(t *testing.T) {
		res := Evaluate(StepReview, paid, WalletContext{Editing: true, Balance: 0, Fee: 2000})
		require.True(t, res.CanAdvance)
		require.False(t, res.InsufficientBalance)
	})

	t.Run("balance equal to fee passes", func(t *testing.T) {
		res := Evaluate(StepReview, paid, WalletContext{Balance: 2000, Fee: 2000})
		require.True(t, res.CanAdvance)
	})

	t.Run("free event skips the wallet", func(t *testing.T) {
		res := Evaluate(StepReview, free, WalletContext{Balance: 0, Fee: 2000})
		require.True(t, res.CanAdvance)
	})

	t.Run("gate only applies on the final step", func(t *testing.T) {
		res := Evaluate(StepTicketing, paid, WalletContext{Balance: 0, Fee: 2000})
		require.True(t, res.CanAdvance)
		require.False(t, res.InsufficientBalance)
	})

	t.Run("invalid step never advances", func(t *testing.T) {
		form := paid
		form.Location = ""
		res := Evaluate(StepLocationDate, form, WalletContext{Balance: 5000, Fee: 2000})
		require.False(t, res.Valid)
		require.False(t, res.CanAdvance)
		require.NotEmpty(t, res.Message)
	})
}

func TestEvaluateAll(t *testing.T) {
	results := EvaluateAll(completeForm(), WalletContext{Fee: 2000})
	require.Len(t, results, 4)
	for i, res := range results {
		require.Equal(t, Step(i+1), res.Step)
		require.True(t, res.CanAdvance, res.Step.String())
	}
}

func TestIsPaid(t *testing.T) {
	form := completeForm()
	form.Price = "100"
	require.False(t, form.IsPaid())

	form.RequiresTickets = true
	require.True(t, form.IsPaid())

	form.Price = "0"
	require.False(t, form.IsPaid())
}
