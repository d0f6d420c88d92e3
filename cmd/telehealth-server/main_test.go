package main

import (
	"testing"
	"time"

	"github.com/telehealth/telehealth/internal/config"
)

func TestMediaConfig_MapsCredentialsAndTimings(t *testing.T) {
	cfg := &config.Config{
		LiveKitURL:              "wss://media.example.com",
		LiveKitAPIKey:           "api-key",
		LiveKitAPISecret:        "api-secret",
		TokenTTLSeconds:         900,
		WebhookToleranceSeconds: 120,
	}

	mc := mediaConfig(cfg)
	if mc.URL != "wss://media.example.com" {
		t.Errorf("URL = %q", mc.URL)
	}
	if mc.APIKey != "api-key" || mc.APISecret != "api-secret" {
		t.Errorf("credentials not mapped: %q / %q", mc.APIKey, mc.APISecret)
	}
	if mc.TokenTTL != 15*time.Minute {
		t.Errorf("TokenTTL = %v, want 15m", mc.TokenTTL)
	}
	if mc.WebhookTolerance != 2*time.Minute {
		t.Errorf("WebhookTolerance = %v, want 2m", mc.WebhookTolerance)
	}
	if !mc.Configured() {
		t.Error("expected Configured() true with both credential halves set")
	}
}

func TestMediaConfig_Unconfigured(t *testing.T) {
	mc := mediaConfig(&config.Config{LiveKitAPIKey: "only-key"})
	if mc.Configured() {
		t.Error("expected Configured() false without a secret")
	}
}
