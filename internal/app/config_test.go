package app

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("POLICY_API_KEY", "test-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AuthzStrategy != "local" {
		t.Fatalf("expected local strategy by default, got %q", cfg.AuthzStrategy)
	}
	if cfg.DefaultOrgID != "default" {
		t.Fatalf("expected default org id, got %q", cfg.DefaultOrgID)
	}
	if cfg.PolicyTimeout != 5*time.Second {
		t.Fatalf("expected 5s policy timeout, got %s", cfg.PolicyTimeout)
	}
	if cfg.IsProduction() {
		t.Fatal("development must not report production")
	}
}

func TestLoadConfigPolicyStrategy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTHZ_STRATEGY", "policy")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AuthzStrategy != "policy" {
		t.Fatalf("expected policy strategy, got %q", cfg.AuthzStrategy)
	}
}

func TestLoadConfigRejectsUnknownStrategy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTHZ_STRATEGY", "oracle")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("unknown strategy must be rejected")
	}
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("POLICY_API_KEY", "test-key")
	t.Setenv("SESSION_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("missing session secret must be rejected")
	}
}
