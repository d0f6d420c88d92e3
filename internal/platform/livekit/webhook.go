package livekit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Event is a verified webhook event. Fields are extracted from the body
// only after the signature over the raw bytes has been validated.
type Event struct {
	Event       string           `json:"event"`
	Room        EventRoom        `json:"room"`
	Participant EventParticipant `json:"participant"`
	CreatedAt   int64            `json:"createdAt"`
}

// EventRoom identifies the room an event refers to.
type EventRoom struct {
	Name string `json:"name"`
	SID  string `json:"sid"`
}

// EventParticipant identifies the participant an event refers to.
type EventParticipant struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

// webhookClaims is the envelope the media server signs: a JWT whose
// sha256 claim is the hex digest of the raw request body.
type webhookClaims struct {
	jwt.RegisteredClaims
	SHA256 string `json:"sha256"`
}

// WebhookReceiver authenticates inbound webhook envelopes. Safe for
// concurrent use; holds only the read-only config.
type WebhookReceiver struct {
	cfg Config
	now func() time.Time
}

// ReceiverOption configures a WebhookReceiver.
type ReceiverOption func(*WebhookReceiver)

// WithReceiverClock overrides the receiver's time source.
func WithReceiverClock(now func() time.Time) ReceiverOption {
	return func(r *WebhookReceiver) { r.now = now }
}

// NewWebhookReceiver creates a WebhookReceiver for the given config.
func NewWebhookReceiver(cfg Config, opts ...ReceiverOption) *WebhookReceiver {
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = DefaultWebhookTolerance
	}
	r := &WebhookReceiver{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Receive verifies the Authorization header against the exact raw body
// bytes and, only on success, parses the event payload. Verification
// failures return ErrInvalidSignature (or ErrTokenExpired), never a
// partially-parsed event.
func (r *WebhookReceiver) Receive(authHeader string, body []byte) (*Event, error) {
	if !r.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	token := strings.TrimSpace(authHeader)
	// Some senders prefix the scheme; the envelope itself is the token.
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, ErrInvalidSignature
	}

	claims := &webhookClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(r.cfg.APISecret), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(r.now),
		jwt.WithLeeway(r.cfg.WebhookTolerance),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidSignature
	}

	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])
	if !hmac.Equal([]byte(digest), []byte(claims.SHA256)) {
		return nil, ErrInvalidSignature
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, ErrInvalidSignature
	}
	return &ev, nil
}
