package storedsafe

import (
	"crypto/tls"
	"fmt"

	rootcerts "github.com/hashicorp/go-rootcerts"
)

type verifyKind int

const (
	verifyDefault verifyKind = iota
	verifySkip
	verifyCABundle
)

// VerifyMode selects how the vault's TLS certificate is verified. It governs
// peer verification exclusively and is never downgraded behind the caller's
// back: skipping verification is an explicit configuration decision, not a
// fallback taken on error.
type VerifyMode struct {
	kind     verifyKind
	caBundle string
}

// VerifyDefault verifies the peer against the system certificate pool.
func VerifyDefault() VerifyMode { return VerifyMode{kind: verifyDefault} }

// VerifySkip disables peer verification entirely.
func VerifySkip() VerifyMode { return VerifyMode{kind: verifySkip} }

// VerifyCABundle verifies the peer against the CA certificates in the given
// bundle file instead of the system pool.
func VerifyCABundle(path string) VerifyMode {
	return VerifyMode{kind: verifyCABundle, caBundle: path}
}

// SkipsVerification reports whether the mode disables peer verification.
func (m VerifyMode) SkipsVerification() bool { return m.kind == verifySkip }

// CABundle returns the configured bundle path, or "" for the other modes.
func (m VerifyMode) CABundle() string { return m.caBundle }

func (m VerifyMode) String() string {
	switch m.kind {
	case verifySkip:
		return "skip-verification"
	case verifyCABundle:
		return "ca-bundle(" + m.caBundle + ")"
	default:
		return "default"
	}
}

// apply configures the given tls.Config according to the mode.
func (m VerifyMode) apply(cfg *tls.Config) error {
	switch m.kind {
	case verifySkip:
		cfg.InsecureSkipVerify = true
	case verifyCABundle:
		if err := rootcerts.ConfigureTLS(cfg, &rootcerts.Config{CAFile: m.caBundle}); err != nil {
			return fmt.Errorf("%w: load CA bundle %s: %w", ErrInvalidConfiguration, m.caBundle, err)
		}
	}
	return nil
}
