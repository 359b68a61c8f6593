package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "info" || cfg.LogPretty {
		t.Errorf("logging defaults: level=%q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "clipvault.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.TagMatchAny {
		t.Error("tag matching must default to AND semantics")
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Errorf("rate limits: rps=%v burst=%d", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.Events.NATSURL != "" {
		t.Errorf("NATSURL default must be empty, got %q", cfg.Events.NATSURL)
	}
	if cfg.Events.Subject != "clipvault.clip.created" || cfg.Events.DLQSubject != "clipvault.clip.created.dlq" {
		t.Errorf("subjects: %q / %q", cfg.Events.Subject, cfg.Events.DLQSubject)
	}
	if cfg.Events.PublishTimeout != 30*time.Second || cfg.Events.DLQTimeout != 10*time.Second {
		t.Errorf("event bounds: %v / %v", cfg.Events.PublishTimeout, cfg.Events.DLQTimeout)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "clipvault-api" || cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "DEBUG")
	t.Setenv("LOG_LEVEL", "warning") // alias normalized to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "v2/")
	t.Setenv("SEARCH_TAG_MATCH_ANY", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("CLIP_EVENTS_SUBJECT", "custom.created")
	t.Setenv("PUBLISH_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Errorf("logging: level=%q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.APIBasePath != "/v2" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if !cfg.TagMatchAny {
		t.Error("SEARCH_TAG_MATCH_ANY not applied")
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" || cfg.Events.Subject != "custom.created" {
		t.Errorf("events: %+v", cfg.Events)
	}
	if cfg.Events.PublishTimeout != 5*time.Second {
		t.Errorf("PublishTimeout = %v", cfg.Events.PublishTimeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.RateRPS != 2.5 {
		t.Errorf("RateRPS = %v", cfg.RateRPS)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("RATE_BURST", "many")
	t.Setenv("LOG_PRETTY", "kinda")
	t.Setenv("GIN_MODE", "turbo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.RateBurst != 10 {
		t.Errorf("RateBurst = %d", cfg.RateBurst)
	}
	if cfg.LogPretty {
		t.Error("unparseable bool must keep the default")
	}
	if cfg.GinMode != "release" {
		t.Errorf("unknown gin mode must normalize to release, got %q", cfg.GinMode)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"negative rps", "RATE_RPS", "-1"},
		{"zero burst", "RATE_BURST", "0"},
		{"zero publish timeout", "PUBLISH_TIMEOUT", "0s"},
		{"sample ratio above one", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
		{"negative timeout", "WRITE_TIMEOUT", "-5s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s must fail validation", tc.key, tc.value)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"  ":      "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v1": "/api/v1",
		"v1///":   "/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
