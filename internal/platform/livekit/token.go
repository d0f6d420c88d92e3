package livekit

import (
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

// Grants is the capability set embedded in a credential. The media
// server authorizes from these signed grants; metadata is advisory only.
type Grants struct {
	CanPublish     bool
	CanSubscribe   bool
	CanPublishData bool
}

// DefaultGrants returns the full capability set.
func DefaultGrants() Grants {
	return Grants{CanPublish: true, CanSubscribe: true, CanPublishData: true}
}

// IssueRequest describes one credential to be issued.
type IssueRequest struct {
	RoomName string
	Identity string
	// Name is the participant display name; defaults to Identity.
	Name string
	// Metadata is an opaque string carried in the token. The server does
	// not parse it to authorize.
	Metadata string
	Grants   Grants
}

// Credential is an immutable signed room credential.
type Credential struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// videoGrant mirrors the media server's grants claim.
type videoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name     string     `json:"name,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
	Video    videoGrant `json:"video"`
}

// TokenIssuer builds signed, time-bounded, capability-scoped room
// credentials. It is a pure function of (secret, inputs, clock) and
// safe for concurrent use.
type TokenIssuer struct {
	cfg Config
	now func() time.Time
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock overrides the issuer's time source.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer creates a TokenIssuer for the given config.
func NewTokenIssuer(cfg Config, opts ...IssuerOption) *TokenIssuer {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	i := &TokenIssuer{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// TTL returns the fixed credential lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.cfg.TokenTTL }

// ServerURL returns the client-facing media server endpoint.
func (i *TokenIssuer) ServerURL() string { return i.cfg.URL }

// Issue builds and signs a credential for the requested room and
// identity. It fails with ErrNotConfigured when the signing secret is
// absent; it never degrades to an unsigned token.
func (i *TokenIssuer) Issue(req IssueRequest) (*Credential, error) {
	if !i.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if err := validateField("room_name", req.RoomName); err != nil {
		return nil, err
	}
	if err := validateField("identity", req.Identity); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Identity
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.cfg.TokenTTL)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.APIKey,
			Subject:   req.Identity,
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:     name,
		Metadata: req.Metadata,
		Video: videoGrant{
			Room:           req.RoomName,
			RoomJoin:       true,
			CanPublish:     req.Grants.CanPublish,
			CanSubscribe:   req.Grants.CanSubscribe,
			CanPublishData: req.Grants.CanPublishData,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.APISecret))
	if err != nil {
		return nil, err
	}

	return &Credential{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Decode parses a credential previously issued with the same secret and
// returns its room, identity and grants. Used by tests and diagnostics.
func (i *TokenIssuer) Decode(token string) (room, identity string, grants Grants, err error) {
	if !i.cfg.Configured() {
		return "", "", Grants{}, ErrNotConfigured
	}
	claims := &accessClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(i.cfg.APISecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", Grants{}, err
	}
	return claims.Video.Room, claims.Subject, Grants{
		CanPublish:     claims.Video.CanPublish,
		CanSubscribe:   claims.Video.CanSubscribe,
		CanPublishData: claims.Video.CanPublishData,
	}, nil
}

func validateField(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(value) > maxFieldLen {
		return &ValidationError{Field: field, Reason: "exceeds 256 characters"}
	}
	for _, r := range value {
		if !unicode.IsPrint(r) {
			return &ValidationError{Field: field, Reason: "contains non-printable characters"}
		}
	}
	return nil
}
