package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SessionTTL != "24h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "24h")
	}
	if cfg.SessionMaxPerIdentity != 5 {
		t.Errorf("SessionMaxPerIdentity = %d, want 5", cfg.SessionMaxPerIdentity)
	}
	if cfg.SessionStrictIP {
		t.Error("SessionStrictIP should default to false")
	}
	if cfg.ResetTokenTTL != "1h" {
		t.Errorf("ResetTokenTTL = %q, want %q", cfg.ResetTokenTTL, "1h")
	}
	if cfg.RateLimitMaxAttempts != 5 {
		t.Errorf("RateLimitMaxAttempts = %d, want 5", cfg.RateLimitMaxAttempts)
	}
	if cfg.AuditKafkaTopic != "visitgate-audit" {
		t.Errorf("AuditKafkaTopic = %q, want default", cfg.AuditKafkaTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("SESSION_TTL", "12h")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("SESSION_STRICT_IP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.SessionTTL != "12h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "12h")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if !cfg.SessionStrictIP {
		t.Error("SessionStrictIP should be true")
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for out-of-range BCRYPT_COST")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{
		SessionTTL:      "48h",
		ResetTokenTTL:   "30m",
		RateLimitWindow: "2h",
		SweepInterval:   "5m",
	}
	if got := cfg.SessionTTLDuration(); got != 48*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 48h", got)
	}
	if got := cfg.ResetTokenTTLDuration(); got != 30*time.Minute {
		t.Errorf("ResetTokenTTLDuration = %v, want 30m", got)
	}
	if got := cfg.RateLimitWindowDuration(); got != 2*time.Hour {
		t.Errorf("RateLimitWindowDuration = %v, want 2h", got)
	}
	if got := cfg.SweepIntervalDuration(); got != 5*time.Minute {
		t.Errorf("SweepIntervalDuration = %v, want 5m", got)
	}
}

func TestDurationAccessors_FallBackOnInvalid(t *testing.T) {
	cfg := &Config{SessionTTL: "bogus", ResetTokenTTL: "", RateLimitWindow: "-1h", SweepInterval: "x"}
	if got := cfg.SessionTTLDuration(); got != 24*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 24h fallback", got)
	}
	if got := cfg.ResetTokenTTLDuration(); got != time.Hour {
		t.Errorf("ResetTokenTTLDuration = %v, want 1h fallback", got)
	}
	if got := cfg.RateLimitWindowDuration(); got != time.Hour {
		t.Errorf("RateLimitWindowDuration = %v, want 1h fallback", got)
	}
	if got := cfg.SweepIntervalDuration(); got != 10*time.Minute {
		t.Errorf("SweepIntervalDuration = %v, want 10m fallback", got)
	}
}

func TestAuditKafkaBrokersList(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := cfg.AuditKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("AuditKafkaBrokersList = %v", got)
	}
	empty := &Config{}
	if got := empty.AuditKafkaBrokersList(); got != nil {
		t.Errorf("AuditKafkaBrokersList on empty = %v, want nil", got)
	}
}
