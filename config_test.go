package careauth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Lockout.Threshold != 5 || cfg.Lockout.Duration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults %+v", cfg.Lockout)
	}
	if cfg.DemoAdmin.Enabled {
		t.Fatal("demo admin must be off by default")
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"environment", func(c *Config) { c.Environment = "qa" }, "unknown environment"},
		{"negative ttl", func(c *Config) { c.JWT.TTL = -time.Second }, "TTL"},
		{"leeway", func(c *Config) { c.JWT.Leeway = 5 * time.Minute }, "leeway"},
		{"iterations", func(c *Config) { c.Password.Iterations = 1000 }, "iterations"},
		{"salt", func(c *Config) { c.Password.SaltBytes = 8 }, "salt"},
		{"key", func(c *Config) { c.Password.KeyBytes = 16 }, "key length"},
		{"lockout duration", func(c *Config) { c.Lockout.Duration = 0 }, "lockout duration"},
		{"role", func(c *Config) { c.Account.DefaultRole = "root" }, "default role"},
		{"prefix", func(c *Config) { c.Store.KeyPrefix = "user:" }, "key prefix"},
		{"audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "audit buffer"},
		{"oauth provider", func(c *Config) { c.OAuth.Providers["myspace"] = OAuthProviderConfig{} }, "unknown OAuth provider"},
		{"oauth timeout", func(c *Config) { c.OAuth.HTTPTimeout = -1 }, "timeout"},
		{"production secret", func(c *Config) {
			c.ProductionMode = true
			c.JWT.Secret = []byte("short")
		}, "JWT secret"},
		{"production demo admin", func(c *Config) {
			c.ProductionMode = true
			c.JWT.Secret = []byte(strings.Repeat("s", 32))
			c.DemoAdmin.Enabled = true
		}, "demo admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.Providers["google"] = OAuthProviderConfig{ClientID: "a", Scopes: []string{"email"}}

	clone := cloneConfig(cfg)
	cfg.JWT.Secret[0] = 'X'
	cfg.OAuth.Providers["google"].Scopes[0] = "mutated"
	cfg.OAuth.Providers["github"] = OAuthProviderConfig{}

	if clone.JWT.Secret[0] == 'X' {
		t.Fatal("secret aliased")
	}
	if clone.OAuth.Providers["google"].Scopes[0] != "email" {
		t.Fatal("scopes aliased")
	}
	if _, ok := clone.OAuth.Providers["github"]; ok {
		t.Fatal("provider map aliased")
	}
}

func TestOAuthRegistryConfigMapping(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.HTTPTimeout = 3 * time.Second
	cfg.OAuth.Providers["github"] = OAuthProviderConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     "http://127.0.0.1/token",
		EmailURL:     "http://127.0.0.1/emails",
	}

	oc := cfg.oauthRegistryConfig()
	gh := oc.Providers["github"]
	if gh.ClientID != "id" || gh.Endpoints.TokenURL != "http://127.0.0.1/token" || gh.Endpoints.EmailURL != "http://127.0.0.1/emails" {
		t.Fatalf("unexpected provider mapping %+v", gh)
	}
	if oc.HTTPTimeout != 3*time.Second || oc.RedirectURL != cfg.OAuth.RedirectURL {
		t.Fatalf("unexpected registry config %+v", oc)
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(0)
	if err != nil {
		t.Fatalf("GenerateSecureToken: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("default token length = %d", len(a))
	}
	b, _ := GenerateSecureToken(16)
	if len(b) != 32 || a[:32] == b {
		t.Fatalf("unexpected token %q", b)
	}
}
