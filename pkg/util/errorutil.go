package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds rendered in the response envelope.
const (
	KindValidation         = "VALIDATION_ERROR"
	KindDuplicateUser      = "DUPLICATE_USER"
	KindNotFound           = "NOT_FOUND"
	KindBlockedUser        = "BLOCKED_USER"
	KindInvalidCredentials = "INVALID_CREDENTIALS"
	KindMissingID          = "MISSING_ID"
	KindRegistration       = "REGISTRATION_ERROR"
	KindLogin              = "LOGIN_ERROR"
	KindUnauthorized       = "UNAUTHORIZED"
	KindPersistence        = "PERSISTENCE_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       string
	Message    string
	HTTPStatus int
	Details    []string
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
func NewDomainError(kind, message string, status int, details []string) *DomainError {
	return &DomainError{Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details []string) error {
	return NewDomainError(KindValidation, message, http.StatusBadRequest, details)
}

func NewDuplicateUser() error {
	return NewDomainError(KindDuplicateUser, "user already exists", http.StatusBadRequest, nil)
}

func NewNotFound(email string) error {
	return NewDomainError(KindNotFound, fmt.Sprintf("%s has not found", email), http.StatusBadRequest, nil)
}

func NewBlockedUser() error {
	return NewDomainError(KindBlockedUser, "This user has been blocked", http.StatusBadRequest, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(KindInvalidCredentials, "Incorrect password", http.StatusBadRequest, nil)
}

func NewMissingID() error {
	return NewDomainError(KindMissingID, "Id not specified", http.StatusBadRequest, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewRegistrationError masks cause behind a generic registration failure.
func NewRegistrationError(cause error) error {
	return &DomainError{Kind: KindRegistration, Message: "Registration error", HTTPStatus: http.StatusBadRequest, Err: cause}
}

// NewLoginError masks cause behind a generic login failure.
func NewLoginError(cause error) error {
	return &DomainError{Kind: KindLogin, Message: "Login error", HTTPStatus: http.StatusBadRequest, Err: cause}
}

func NewPersistenceError(cause error) error {
	return &DomainError{
		Kind:       KindPersistence,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

// ToDomainError converts generic errors to DomainError. Anything unknown
// becomes a persistence failure.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewPersistenceError(err).(*DomainError)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Kind == kind
}
