package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes classified by ToDomainError.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgInvalidText     = "22P02"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status}
}

func NewValidationError(message string) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest)
}

func NewAuthenticationError(message string) error {
	return NewDomainError("UNAUTHENTICATED", message, http.StatusUnauthorized)
}

// NewAuthorizationError signals a valid identity acting on a forbidden
// resource. Responds 401 rather than 403, matching the public contract.
func NewAuthorizationError(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusUnauthorized)
}

// NewConflict responds 400 rather than 409, matching the public contract.
func NewConflict(message string) error {
	return NewDomainError("CONFLICT", message, http.StatusBadRequest)
}

func NewNotFound(message string) error {
	return NewDomainError("NOT_FOUND", message, http.StatusNotFound)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "Server Error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource not found").(*DomainError); ok {
			de.Err = err
			return de
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &DomainError{Code: "CONFLICT", Message: "resource already exists", HTTPStatus: http.StatusBadRequest, Err: err}
		case pgCheckViolation:
			return &DomainError{Code: "VALIDATION_FAILED", Message: "invalid field value", HTTPStatus: http.StatusBadRequest, Err: err}
		case pgInvalidText:
			// A malformed id cannot match any row; mask it like a miss.
			return &DomainError{Code: "NOT_FOUND", Message: "resource not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "Server Error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
