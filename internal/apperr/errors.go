package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("already handled")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDeliveryFailure      = errors.New("delivery failure")
	ErrConfigurationMissing = errors.New("configuration missing")
)

// NotFound cria um erro de recurso inexistente, ex: NotFound("occurrence %s", id)
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

func InvalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidState)
}

func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Delivery marca uma falha de entrega (email, push, calendário, notificação).
// Essas falhas são tratadas localmente e nunca chegam ao cliente da API.
func Delivery(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %v", fmt.Sprintf(format, args...), ErrDeliveryFailure, err)
}

// Code devolve o código estável usado nas respostas HTTP
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "already_handled"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDeliveryFailure):
		return "delivery_failure"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	default:
		return "internal_error"
	}
}
