package config

import (
	"testing"
	"time"
)

func TestBoolEnvOrDefault(t *testing.T) {
	t.Setenv("BOOL_TEST", "")
	if got := boolEnvOrDefault("BOOL_TEST", true); !got {
		t.Fatalf("expected default true when unset")
	}

	cases := []struct {
		val      string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"no", false},
		{" off ", false},
		{"On", true},
		{"maybe", true}, // falls back to default on unknown
	}

	for _, tc := range cases {
		t.Setenv("BOOL_TEST", tc.val)
		if got := boolEnvOrDefault("BOOL_TEST", true); got != tc.expected {
			t.Fatalf("expected %v for %s, got %v", tc.expected, tc.val, got)
		}
	}
}

func TestEnvOrDefaultTrimsWhitespace(t *testing.T) {
	t.Setenv("STRING_TEST", "  ")
	if got := envOrDefault("STRING_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
	t.Setenv("STRING_TEST", " sqlite ")
	if got := envOrDefault("STRING_TEST", "fallback"); got != "sqlite" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestIntEnvOrDefault(t *testing.T) {
	cases := map[string]int{
		"":     7,
		"12":   12,
		"0":    7,
		"-3":   7,
		"nope": 7,
	}
	for raw, want := range cases {
		t.Setenv("INT_TEST", raw)
		if got := intEnvOrDefault("INT_TEST", 7); got != want {
			t.Fatalf("expected %d for %q, got %d", want, raw, got)
		}
	}
}

func TestDurationEnvOrDefault(t *testing.T) {
	cases := map[string]time.Duration{
		"":      time.Minute,
		"90s":   90 * time.Second,
		" 2m ":  2 * time.Minute,
		"0s":    time.Minute,
		"-1s":   time.Minute,
		"later": time.Minute,
	}
	for raw, want := range cases {
		t.Setenv("DURATION_TEST", raw)
		if got := durationEnvOrDefault("DURATION_TEST", time.Minute); got != want {
			t.Fatalf("expected %s for %q, got %s", want, raw, got)
		}
	}
}

func TestLoadMetricsExportInterval(t *testing.T) {
	t.Setenv(envOtelInterval, "")
	if got := loadMetrics().ExportInterval; got != defaultExportEvery {
		t.Fatalf("expected default export interval, got %s", got)
	}
	t.Setenv(envOtelInterval, "30s")
	t.Setenv(envOtelEndpoint, "collector:4318")
	cfg := loadMetrics()
	if cfg.ExportInterval != 30*time.Second || cfg.OtlpEndpoint != "collector:4318" {
		t.Fatalf("unexpected metrics config %+v", cfg)
	}
}
