// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromChain maps the errors returned by the blockchain packages to a trusted
// error with the matching status. Anything unknown is a 500 and is returned
// unchanged so it stays hidden from clients.
func FromChain(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, database.ErrMalformed),
		errors.Is(err, database.ErrInsufficientWork),
		errors.Is(err, database.ErrBlockTooLarge),
		errors.Is(err, digest.ErrInvalidHex),
		errors.Is(err, digest.ErrInvalidLength),
		errors.Is(err, difficulty.ErrExponentOverflow),
		errors.Is(err, difficulty.ErrMantissaOverflow),
		errors.Is(err, difficulty.ErrInvalidBits),
		errors.Is(err, difficulty.ErrZeroTimespan):
		return NewTrusted(err, http.StatusBadRequest)
	}

	return err
}
