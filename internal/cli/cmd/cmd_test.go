package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inventhq/invent/internal/cli/config"
	"github.com/inventhq/invent/internal/store/projects"
)

// run executes the root command with a fresh flag state.
func run(t *testing.T, args ...string) error {
	t.Helper()
	cfgFile, serverURL, jsonOutput, jqFilter, verbose = "", "", false, "", false
	passwordStdin, loginPath = false, ""
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestAuthLoginSavesToken(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/api-token-auth/" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123","user_profile_id":7}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("INVENT_PASSWORD", "secret")

	if err := run(t, "--config", path, "--server", srv.URL, "--json", "auth", "login", "alice"); err != nil {
		t.Fatalf("auth login: %v", err)
	}
	if got["username"] != "alice" || got["password"] != "secret" {
		t.Errorf("login body = %v", got)
	}

	saved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Token != "tok-123" || saved.Server != srv.URL {
		t.Errorf("saved config = %+v", saved)
	}
}

func TestAuthLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("INVENT_PASSWORD", "wrong")

	if err := run(t, "--config", path, "--server", srv.URL, "--json", "auth", "login", "alice"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config written after a failed login: %v", err)
	}
}

func TestSignedOutCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	for _, args := range [][]string{
		{"projects", "list"},
		{"filters", "list"},
		{"matrix", "3"},
		{"export", "1"},
	} {
		err := run(t, append([]string{"--config", path, "--json"}, args...)...)
		if err != errSignedOut {
			t.Errorf("%v: error = %v, want errSignedOut", args, err)
		}
	}
}

func TestReadPassword(t *testing.T) {
	passwordStdin = false
	t.Setenv("INVENT_PASSWORD", "")
	if _, err := readPassword(); err == nil {
		t.Error("expected an error without a password")
	}
	t.Setenv("INVENT_PASSWORD", "pw")
	if p, err := readPassword(); err != nil || p != "pw" {
		t.Errorf("readPassword() = %q, %v", p, err)
	}
}

func TestNormalizeQuery(t *testing.T) {
	query, p, err := normalizeQuery("?country=2,1&goal=22")
	if err != nil {
		t.Fatalf("normalizeQuery: %v", err)
	}
	if p.Goal == nil || *p.Goal != 22 || len(p.Country) != 2 {
		t.Errorf("parameters = %+v", p)
	}
	if !strings.Contains(query, "goal=22") || !strings.Contains(query, "country=") {
		t.Errorf("query = %q", query)
	}

	if _, _, err := normalizeQuery("goal=abc"); err == nil {
		t.Error("expected an error for a non-numeric goal")
	}
}

func TestConfigPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfgFile = path
	cfg = &config.Config{Token: "t"}
	t.Cleanup(func() { cfgFile = "" })

	var p configPrefs
	if _, ok, _ := p.PageSize(t.Context(), "7"); ok {
		t.Fatal("page size set before saving one")
	}
	if err := p.SetPageSize(t.Context(), "7", 25); err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}
	if size, ok, _ := p.PageSize(t.Context(), "7"); !ok || size != 25 {
		t.Errorf("PageSize() = %d, %v", size, ok)
	}
	saved, err := config.Load(path)
	if err != nil || saved.PageSize != 25 {
		t.Errorf("saved page size = %+v, %v", saved, err)
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":                 "(not set)",
		"short":            "***",
		"0123456789abcdef": "0123...cdef",
	}
	for in, want := range tests {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPending(t *testing.T) {
	tabs := []projects.Tab{
		{ID: projects.TabInitiatives, Total: 4},
		{ID: projects.TabReviews, Total: 2},
	}
	if got := pending(tabs); got != 2 {
		t.Errorf("pending() = %d, want 2", got)
	}
}

func TestReadScores(t *testing.T) {
	if scores, err := readScores(""); err != nil || scores != nil {
		t.Errorf("readScores(\"\") = %v, %v", scores, err)
	}

	path := filepath.Join(t.TempDir(), "scores.json")
	raw := `[{"axis_score": 40, "domains": [{"domain_percentage": 20}]}, {"axis_score": 75, "domains": []}]`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	scores, err := readScores(path)
	if err != nil {
		t.Fatalf("readScores: %v", err)
	}
	if len(scores) != 2 || scores[1].AxisScore != 75 || scores[0].Domains[0].DomainPercentage != 20 {
		t.Errorf("scores = %+v", scores)
	}

	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readScores(path); err == nil {
		t.Error("expected an error for malformed scores")
	}
}
