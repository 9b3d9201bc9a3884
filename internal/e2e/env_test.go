package e2e

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	dotenv := "INVENT_E2E_URL=https://invent.example.org\nINVENT_E2E_USER=e2e@example.org\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INVENT_E2E_PASSWORD", "from-env")
	t.Setenv("INVENT_E2E_USER", "override@example.org")
	// unset for the test, restored afterwards
	t.Setenv("INVENT_E2E_URL", "")
	os.Unsetenv("INVENT_E2E_URL")
	t.Cleanup(func() { os.Unsetenv("INVENT_E2E_URL") })

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.URL != "https://invent.example.org" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.User != "override@example.org" {
		t.Errorf("User = %q, the environment must win over .env", cfg.User)
	}
	if cfg.LoginPath != "/api/api-token-auth/" || cfg.Country != 1 {
		t.Errorf("defaults = %q, %d", cfg.LoginPath, cfg.Country)
	}
	if !cfg.Enabled() {
		t.Error("Enabled() = false with URL and credentials set")
	}
}

func TestConfigDisabled(t *testing.T) {
	if (&Config{URL: "https://invent.example.org"}).Enabled() {
		t.Error("Enabled() = true without credentials")
	}
}
