package storedsafe

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidLookupTerm    = errors.New("invalid lookup term")

	// Vault errors
	ErrVaultUnreachable = errors.New("vault unreachable")
	ErrAuthProtocol     = errors.New("unexpected auth response from vault")
	ErrTokenRejected    = errors.New("token rejected by vault")
	ErrFieldNotFound    = errors.New("requested field not found in vault")
	ErrFetchFailed      = errors.New("object fetch failed")

	// Token refresh errors
	ErrUpdateScriptNotFound = errors.New("token update script not found")
	ErrTokenUpdateFailed    = errors.New("token update failed")
	ErrTokenUpdateTimeout   = errors.New("token update timed out")
	ErrLockWaitTimeout      = errors.New("timed out waiting for refresh lock")
	ErrMaxRetriesExceeded   = errors.New("maximum retries reached")
)

func NewMissingServerError(rcFile string) error {
	return fmt.Errorf("%w: StoredSafe address not set, specify with the %s environment variable, the %s framework variable, or in %s",
		ErrInvalidConfiguration, EnvServer, VarServer, rcFile)
}

func NewMissingTokenError(rcFile string) error {
	return fmt.Errorf("%w: StoredSafe token not set and no update script available, specify the token with the %s environment variable or in %s, or an update script with the %s environment variable or the %s framework variable",
		ErrInvalidConfiguration, EnvToken, rcFile, EnvTokenUpdateScript, VarTokenUpdateScript)
}

func NewInvalidTermError(term string) error {
	return fmt.Errorf("%w: %q must be of the form <objectid>/<fieldname>", ErrInvalidLookupTerm, term)
}

func NewUnreachableError(url string, cause error) error {
	return fmt.Errorf("%w: can not reach %q: %w", ErrVaultUnreachable, url, cause)
}

func NewFieldNotFoundError(objectID, fieldName string) error {
	return fmt.Errorf("%w: object %s has no value for %q", ErrFieldNotFound, objectID, fieldName)
}

func NewFetchFailedError(objectID string, statusCode int) error {
	return fmt.Errorf("%w: object %s: vault returned status %d", ErrFetchFailed, objectID, statusCode)
}

// IsRetryableError returns true if the error represents a failed token
// refresh that may succeed on another attempt, subject to the retry budget.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrTokenUpdateFailed) ||
		errors.Is(err, ErrTokenUpdateTimeout)
}

// IsConfigurationError returns true if the error represents a configuration
// problem the caller must fix before retrying the invocation.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidLookupTerm) ||
		errors.Is(err, ErrUpdateScriptNotFound)
}

// IsAuthError returns true if the error represents an authentication problem
// with the vault session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTokenRejected) ||
		errors.Is(err, ErrAuthProtocol)
}

// IsFatalLookupError returns true if the error represents a definitive answer
// from the vault that retrying cannot change: the object or field does not
// exist, or the fetch failed for a non-auth reason.
func IsFatalLookupError(err error) bool {
	return errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrFetchFailed)
}
