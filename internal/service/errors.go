package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/payment"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/wizard"
)

var (
	// ErrUnauthenticated is returned when an operation requires a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the actor lacks the capability for an operation.
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrMessageForbidden is returned when the actor may not change a message.
	ErrMessageForbidden = errors.New("you can only modify your own messages")
	// ErrNestedReply is returned when replying to a reply.
	ErrNestedReply = errors.New("replies cannot be nested")
	// ErrEmptyContent is returned when content is blank after sanitising.
	ErrEmptyContent = errors.New("message content cannot be empty")
	// ErrContentTooLong is returned when sanitised content exceeds the message limit.
	ErrContentTooLong = fmt.Errorf("message content exceeds %d characters", models.MaxMessageLength)
	// ErrInvalidReaction is returned for an unknown reaction type.
	ErrInvalidReaction = errors.New("unsupported reaction type")
	// ErrSlugTaken is returned when a blog slug is already used by another post.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrInsufficientBalance mirrors the repository error so handlers depend on one package.
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	// ErrBusy mirrors the key lock error.
	ErrBusy = repository.ErrLockBusy
	// ErrInvalidGatewayKey wraps every GatewayKeyError.
	ErrInvalidGatewayKey = errors.New("invalid gateway key")
	// ErrWizardStepInvalid wraps every StepError.
	ErrWizardStepInvalid = errors.New("event form is incomplete")
)

// GatewayKeyError carries the validation result of a rejected secret key.
type GatewayKeyError struct {
	Validation payment.KeyValidation
}

func (e *GatewayKeyError) Error() string {
	return e.Validation.Message
}

// Unwrap lets callers match ErrInvalidGatewayKey.
func (e *GatewayKeyError) Unwrap() error {
	return ErrInvalidGatewayKey
}

// StepError reports the first wizard step that blocks a submission.
type StepError struct {
	Result wizard.Result
}

func (e *StepError) Error() string {
	if e.Result.Message != "" {
		return e.Result.Message
	}
	return ErrWizardStepInvalid.Error()
}

// Unwrap lets callers match ErrWizardStepInvalid.
func (e *StepError) Unwrap() error {
	return ErrWizardStepInvalid
}
