// Package common defines shared constants and sentinel errors used across
// the tgotp server and CLI. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level input errors.
	ErrorValidation = errors.New("validation error")

	// Init-data verification errors.
	ErrMissingHash          = errors.New("init data has no hash")
	ErrSignatureMismatch    = errors.New("init data signature mismatch")
	ErrMalformedUserField   = errors.New("malformed user field")
	ErrInitDataExpired      = errors.New("init data expired")
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrMissingUser          = errors.New("init data carries no user")

	// Secret codec errors.
	ErrInvalidEncoding = errors.New("invalid base32 encoding")
	ErrInvalidSecret   = errors.New("invalid secret")
	ErrInvalidURI      = errors.New("invalid otpauth uri")

	// Transfer token lifecycle errors. An expired token is reported as a
	// not-found one so that callers matching ErrTokenNotFound treat both alike.
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = fmt.Errorf("%w: expired", ErrTokenNotFound)
	ErrSelfImportRejected = errors.New("cannot import your own export")

	// PIN errors.
	ErrNoPinSet     = errors.New("no pin set")
	ErrIncorrectPIN = errors.New("incorrect pin")

	ErrRateLimited = errors.New("rate limited")
)
