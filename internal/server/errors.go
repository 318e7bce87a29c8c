package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/rag"
)

// ErrorHandler renders API errors as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	apiErr = fromPipelineError(err)
	log.Error().Err(err).Int("code", apiErr.Code).Str("path", c.Path()).Msg("Request failed")
	return c.Status(apiErr.Code).JSON(apiErr)
}

// fromPipelineError maps indexing and answering failures to HTTP codes.
func fromPipelineError(err error) Error {
	switch {
	case errors.Is(err, rag.ErrNoDocuments), errors.Is(err, rag.ErrNoText):
		return NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrEmptyQuestion):
		return NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return NewError(fiber.StatusInternalServerError, err.Error())
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid request")
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}
