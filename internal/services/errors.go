package services

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorKind classifies a failure for HTTP translation.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindValidation
	KindPreconditionFailed
	KindForbidden
	KindUnavailable
)

var (
	ErrNotFound            = errors.New("not found")
	ErrNotExpenseOwner     = errors.New("only the owner can edit this expense")
	ErrEditLimitReached    = errors.New("expense has already been edited once")
	ErrExpenseNotPending   = errors.New("only pending expenses can be edited")
	ErrAlreadyReviewed     = errors.New("expense has already been reviewed")
	ErrCoordinatesRequired = errors.New("latitude and longitude are required to confirm this visit")
	ErrReceiptsUnavailable = errors.New("payment receipts are unavailable")
	ErrEmailExists         = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// ServiceError carries a kind and a client-safe message.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func notFoundf(format string, args ...any) error {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

func invalidf(format string, args ...any) error {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func invalid(err error) error {
	return &ServiceError{Kind: KindValidation, Message: err.Error(), Err: err}
}

// KindOf maps an error to its kind. Unrecognized errors are internal.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotExpenseOwner):
		return KindForbidden
	case errors.Is(err, ErrEditLimitReached), errors.Is(err, ErrExpenseNotPending), errors.Is(err, ErrAlreadyReviewed),
		errors.Is(err, ErrEmailExists):
		return KindPreconditionFailed
	case errors.Is(err, ErrCoordinatesRequired):
		return KindValidation
	case errors.Is(err, ErrReceiptsUnavailable):
		return KindUnavailable
	}
	return KindInternal
}

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindPreconditionFailed:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteError translates err into the JSON error body. Internal errors are
// logged and replaced with a generic message.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := KindOf(err)
	if kind == KindInternal {
		log.Error("request failed", zap.Error(err))
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	message := err.Error()
	var se *ServiceError
	if errors.As(err, &se) {
		message = se.Message
	}
	SendErrorResponse(w, message, statusFor(kind), nil)
}
