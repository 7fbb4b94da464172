package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// respondError maps service errors onto status codes. Known errors keep their message so the
// client can show it verbatim; anything else is logged and reported as fallback.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var (
		validationErrors validator.ValidationErrors
		keyErr           *service.GatewayKeyError
		stepErr          *service.StepError
	)

	switch {
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", fieldErrors(validationErrors))
	case errors.As(err, &keyErr):
		return utils.Fail(c, fiber.StatusBadRequest, keyErr.Error(), keyErr.Validation)
	case errors.As(err, &stepErr):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, stepErr.Error(), stepErr.Result)
	case errors.Is(err, service.ErrUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrMessageForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrInsufficientBalance):
		return utils.SendError(c, fiber.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrTicketCapacity),
		errors.Is(err, models.ErrTicketOversold):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNestedReply),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrContentTooLong),
		errors.Is(err, service.ErrInvalidReaction),
		errors.Is(err, service.ErrUploadTypeNotAllowed),
		errors.Is(err, service.ErrUploadMissing):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	}

	requestLogger(logger, c).Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
