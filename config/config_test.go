package config

import (
	"testing"
	"time"
)

func TestSanitizeEnv(t *testing.T) {
	cases := map[string]string{
		`"sk-abc"`:     "sk-abc",
		`'sk-abc'`:     "sk-abc",
		" sk-xyz ":     "sk-xyz",
		"sk-no-quotes": "sk-no-quotes",
		"\"incomplete": "\"incomplete", // no closing quote, left alone
	}
	for in, exp := range cases {
		if got := sanitizeEnv(in); got != exp {
			t.Errorf("sanitizeEnv(%q)=%q; want %q", in, got, exp)
		}
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("HISTORY_WINDOW", "4")
	t.Setenv("LLM_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SMTP_USER", "vet@clinic.test")
	t.Setenv("SMTP_FROM", "")

	cfg := Load()
	if cfg.DBDriver != "mysql" {
		t.Fatalf("DBDriver=%q", cfg.DBDriver)
	}
	if cfg.HistoryWindow != 4 {
		t.Fatalf("HistoryWindow=%d", cfg.HistoryWindow)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("LLMTimeout=%s; want default", cfg.LLMTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("CORSOrigins=%v", cfg.CORSOrigins)
	}
	if cfg.SMTPFrom != "vet@clinic.test" {
		t.Fatalf("SMTPFrom should default to SMTP_USER, got %q", cfg.SMTPFrom)
	}
	if cfg.UploadMaxBytes != 5<<20 {
		t.Fatalf("UploadMaxBytes=%d", cfg.UploadMaxBytes)
	}
}
