package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate and
// Credential.Validate. Callers match them with errors.Is.
var (
	// ErrInvalidPoolSize is returned when the minimum worker count is not positive.
	ErrInvalidPoolSize = errors.New("invalid pool size: minimum workers must be positive")

	// ErrInvalidWatchdogInterval is returned when the watchdog interval is not positive.
	ErrInvalidWatchdogInterval = errors.New("invalid watchdog interval: must be positive")

	// ErrInvalidStuckTimeout is returned when the stuck timeout is negative.
	// Zero selects the default timeout.
	ErrInvalidStuckTimeout = errors.New("invalid stuck timeout: must be non-negative")

	// ErrInvalidTimeout is returned when a probe timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrEmptyEndpoint is returned when no asset registry endpoint is configured.
	ErrEmptyEndpoint = errors.New("asset registry endpoint is empty")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrCredentialNotFound is returned when a credential id is not defined.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidCredential is returned for credential documents that cannot
	// be handed to a driver.
	ErrInvalidCredential = errors.New("invalid credential")
)

// CredentialError reports which credential document failed validation.
type CredentialError struct {
	ID  string
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %q: %v", e.ID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
