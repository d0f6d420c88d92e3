package livekit

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		URL:       "wss://media.example.com",
		APIKey:    "APIKEY123",
		APISecret: "super-secret-signing-key",
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	cred, err := issuer.Issue(IssueRequest{
		RoomName: "room-APT-001",
		Identity: "user@example.com",
		Grants:   DefaultGrants(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	room, identity, grants, err := issuer.Decode(cred.Token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if room != "room-APT-001" {
		t.Errorf("expected room room-APT-001, got %s", room)
	}
	if identity != "user@example.com" {
		t.Errorf("expected identity user@example.com, got %s", identity)
	}
	if !grants.CanPublish || !grants.CanSubscribe || !grants.CanPublishData {
		t.Errorf("expected all grants true, got %+v", grants)
	}
}

func TestIssue_ExpiryMatchesTTL(t *testing.T) {
	cfg := testConfig()
	cfg.TokenTTL = 90 * time.Minute
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(cfg, WithClock(func() time.Time { return fixed }))

	cred, err := issuer.Issue(IssueRequest{RoomName: "room-1", Identity: "u1", Grants: DefaultGrants()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cred.ExpiresAt.Sub(cred.IssuedAt); got != 90*time.Minute {
		t.Errorf("expected lifetime 90m, got %v", got)
	}
	if !cred.IssuedAt.Equal(fixed) {
		t.Errorf("expected issued_at %v, got %v", fixed, cred.IssuedAt)
	}
}

func TestIssue_DefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	if issuer.TTL() != time.Hour {
		t.Errorf("expected default TTL 1h, got %v", issuer.TTL())
	}
}

func TestIssue_MissingSecret(t *testing.T) {
	for _, cfg := range []Config{
		{APIKey: "key"},
		{APISecret: "secret"},
		{},
	} {
		issuer := NewTokenIssuer(cfg)
		cred, err := issuer.Issue(IssueRequest{RoomName: "room-1", Identity: "u1", Grants: DefaultGrants()})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
		if cred != nil {
			t.Error("expected no credential when unconfigured")
		}
	}
}

func TestIssue_EmptyInputs(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	if _, err := issuer.Issue(IssueRequest{Identity: "u1"}); !IsValidation(err) {
		t.Errorf("expected validation error for empty room, got %v", err)
	}
	if _, err := issuer.Issue(IssueRequest{RoomName: "room-1"}); !IsValidation(err) {
		t.Errorf("expected validation error for empty identity, got %v", err)
	}
}

func TestIssue_OversizedInput(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	long := strings.Repeat("a", 257)
	if _, err := issuer.Issue(IssueRequest{RoomName: long, Identity: "u1"}); !IsValidation(err) {
		t.Errorf("expected validation error for oversized room, got %v", err)
	}
}

func TestIssue_NonPrintableInput(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	if _, err := issuer.Issue(IssueRequest{RoomName: "room-\x00", Identity: "u1"}); !IsValidation(err) {
		t.Errorf("expected validation error for non-printable room, got %v", err)
	}
}

func TestIssue_NameDefaultsToIdentity(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	cred, err := issuer.Issue(IssueRequest{RoomName: "room-1", Identity: "u1", Grants: DefaultGrants()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Token == "" {
		t.Error("expected non-empty token")
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	cred, err := issuer.Issue(IssueRequest{RoomName: "room-1", Identity: "u1", Grants: DefaultGrants()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := testConfig()
	other.APISecret = "a-different-secret"
	if _, _, _, err := NewTokenIssuer(other).Decode(cred.Token); err == nil {
		t.Error("expected decode failure under wrong secret")
	}
}

func TestIssue_SubscribeOnlyGrants(t *testing.T) {
	issuer := NewTokenIssuer(testConfig())
	cred, err := issuer.Issue(IssueRequest{
		RoomName: "room-1",
		Identity: "observer",
		Grants:   Grants{CanSubscribe: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, grants, err := issuer.Decode(cred.Token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if grants.CanPublish || grants.CanPublishData {
		t.Errorf("expected publish grants false, got %+v", grants)
	}
	if !grants.CanSubscribe {
		t.Error("expected subscribe grant true")
	}
}
