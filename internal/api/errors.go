package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-karaoke/internal/party"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(statusCode int) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound)
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError)
	e.Err = err
	return e
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden)
}

func NewConflictError() *ApiError {
	return newApiError(http.StatusConflict)
}

// fromServiceError maps the party error taxonomy onto HTTP statuses. The
// party message is user-facing; anything else becomes a generic 500.
func fromServiceError(err error) *ApiError {
	var perr *party.Error
	if !errors.As(err, &perr) {
		return NewInternalServerError(err)
	}

	var status int
	switch {
	case errors.Is(perr, party.ErrValidation), errors.Is(perr, party.ErrInvalidOperation):
		status = http.StatusBadRequest
	case errors.Is(perr, party.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(perr, party.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(perr, party.ErrConflict):
		status = http.StatusConflict
	default:
		return NewInternalServerError(err)
	}

	return &ApiError{StatusCode: status, Message: perr.Message, Err: err}
}
