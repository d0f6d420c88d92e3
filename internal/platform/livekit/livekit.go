// Package livekit issues room access tokens for the external media
// server and verifies its signed webhook callbacks. Both sides share a
// single API key/secret pair; the issuer and receiver are pure with
// respect to shared state and safe for concurrent use.
package livekit

import (
	"errors"
	"time"
)

// Default values matching the media server's contract.
const (
	DefaultTokenTTL         = time.Hour
	DefaultWebhookTolerance = 5 * time.Minute
	maxFieldLen             = 256
)

// Config holds the media-server credentials and timing knobs. It is
// constructed explicitly and passed in; nothing in this package reads
// the environment.
type Config struct {
	// URL is the client-facing server endpoint (e.g. wss://host).
	URL string
	// APIKey identifies the signing key and becomes the token issuer claim.
	APIKey string
	// APISecret is the shared HMAC secret. Never transmitted.
	APISecret string
	// TokenTTL is the fixed credential lifetime. Zero means DefaultTokenTTL.
	TokenTTL time.Duration
	// WebhookTolerance is the allowed clock skew when validating webhook
	// token timestamps. Zero means DefaultWebhookTolerance.
	WebhookTolerance time.Duration
}

// Configured reports whether both credential halves are present.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

var (
	// ErrNotConfigured means the API key or secret is missing. Callers must
	// treat this as fatal: issuing an unsigned placeholder credential is
	// forbidden.
	ErrNotConfigured = errors.New("livekit: api key or secret not configured")

	// ErrInvalidSignature means a webhook envelope failed cryptographic
	// verification.
	ErrInvalidSignature = errors.New("livekit: webhook signature invalid")

	// ErrTokenExpired means a webhook envelope carried a valid but expired
	// signature.
	ErrTokenExpired = errors.New("livekit: webhook token expired")
)

// ValidationError reports malformed caller input, rejected before any
// cryptographic work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "livekit: invalid " + e.Field + ": " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
