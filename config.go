package storedsafe

import (
	"fmt"
	"os"

	"github.com/hengadev/errsx"
)

// Config holds the resolved configuration for one lookup invocation.
//
// This struct contains only data, no behavior beyond validation. It is built
// once per invocation by ResolveConfig (or assembled explicitly in code) and
// never mutated afterwards; a token refresh produces a new Session, it does
// not patch the Config.
type Config struct {
	// Server is the StoredSafe server address, host name only. The client
	// derives the base URL https://<Server>/api/1.0 from it.
	//
	// Required unless the rc file provides it.
	Server string

	// Token is the StoredSafe session token. May be empty when
	// TokenUpdateScript is set: the first auth check will fail and the
	// refresh coordinator will obtain a fresh token.
	Token string

	// CABundle is an optional path to a CA certificate bundle used to verify
	// the vault's TLS certificate. Ignored when SkipVerify is true.
	CABundle string

	// SkipVerify disables TLS peer verification. This is a config-time
	// decision made by the operator, never a fallback.
	SkipVerify bool

	// TokenUpdateScript is an optional path to an executable that performs a
	// fresh login and rewrites the rc file as a side effect.
	TokenUpdateScript string

	// RCFile is the path to the rc file, already expanded to an absolute
	// location. The refresh coordinator re-reads it after a successful
	// update script run.
	RCFile string
}

// Validate checks that the configuration can support at least one lookup.
//
// A missing token is acceptable when an update script is configured; the
// refresh coordinator defers to the script in that case.
func (c *Config) Validate() error {
	errs := errsx.Map{}

	if c.Server == "" {
		errs.Set("server", NewMissingServerError(c.RCFile))
	}
	if c.Token == "" && c.TokenUpdateScript == "" {
		errs.Set("token", NewMissingTokenError(c.RCFile))
	}
	if c.CABundle != "" {
		if _, err := os.Stat(c.CABundle); err != nil {
			errs.Set("cabundle", fmt.Errorf("%w: CA bundle %s: %w", ErrInvalidConfiguration, c.CABundle, err))
		}
	}

	return errs.AsError()
}

// VerifyMode returns the TLS verification mode the configuration selects.
// An explicit SkipVerify wins over a CA bundle.
func (c *Config) VerifyMode() VerifyMode {
	if c.SkipVerify {
		return VerifySkip()
	}
	if c.CABundle != "" {
		return VerifyCABundle(c.CABundle)
	}
	return VerifyDefault()
}
