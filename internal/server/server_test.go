package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inventhq/invent/internal/config"
	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// fakeINVENT serves the reference endpoints and accepts the token "good".
func fakeINVENT(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(path string, v any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(v)
		})
	}
	reply("/api/static-data/", domain.StaticData{
		UnicefDonor:        domain.Donor{ID: 1, Name: "UNICEF"},
		UnicefOrganisation: domain.Organisation{ID: 1, Name: "UNICEF"},
	})
	reply("/api/countries/", []domain.Country{{ID: 1, Name: "Kenya"}})
	reply("/api/offices/", []domain.Office{})
	reply("/api/donors/1/", domain.Donor{ID: 1, Name: "UNICEF"})
	reply("/api/projects/structure/", domain.ProjectStructure{})
	mux.HandleFunc("/api/userprofiles/me/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Invalid token."}`))
			return
		}
		json.NewEncoder(w).Encode(domain.UserProfile{ID: 7, Name: "Ada"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                     "0",
		UpstreamTimeout:          5 * time.Second,
		CORSOrigins:              []string{"http://localhost:3000"},
		RateLimitPerSecond:       100,
		RateLimitBurst:           100,
		UnauthRateLimitPerSecond: 100,
		UnauthRateLimitBurst:     100,
		StructureRefreshCron:     "*/15 * * * *",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	upstream := fakeINVENT(t)
	s, err := New(testConfig(), Deps{API: client.New("", client.WithServer(upstream.URL)), Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func get(s *Server, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestReadyAfterRefresh(t *testing.T) {
	s := newTestServer(t)

	if w := get(s, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("before refresh: expected 503, got %d", w.Code)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if w := get(s, "/ready", ""); w.Code != http.StatusOK {
		t.Errorf("after refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := get(s, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.Refresh(context.Background())
	get(s, "/health", "")

	w := get(s, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`inventd_structure_refreshes_total{result="ok"} 1`,
		`inventd_http_requests_total{method="GET",route="/health",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics do not contain %s", want)
		}
	}
}

func TestSessions(t *testing.T) {
	s := newTestServer(t)

	if w := get(s, "/api/vm/initiatives", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
	if w := get(s, "/api/vm/initiatives", "bad"); w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", w.Code)
	}
}

func TestOrganisationManagementGuard(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/fr/unicef/organisation-management",
		"/unicef/organisation-management/edit/2",
	} {
		w := get(s, path, "good")
		if w.Code != http.StatusFound {
			t.Errorf("%s: expected 302, got %d", path, w.Code)
			continue
		}
		if loc := w.Header().Get("Location"); !strings.HasSuffix(loc, "/-") {
			t.Errorf("%s: redirected to %q", path, loc)
		}
	}
}

func TestWriteRoutesRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.WriteRateLimitPerSecond, cfg.WriteRateLimitBurst = 1, 1
	s, err := New(cfg, Deps{API: client.New("", client.WithServer(fakeINVENT(t).URL)), Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	validate := func() int {
		req := httptest.NewRequest("POST", "/api/vm/import/validate", strings.NewReader("Name\n"))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w.Code
	}
	if code := validate(); code == http.StatusTooManyRequests {
		t.Fatal("first upload rate limited")
	}
	if code := validate(); code != http.StatusTooManyRequests {
		t.Errorf("second upload: expected 429, got %d", code)
	}
	if w := get(s, "/api/vm/filters/searched", ""); w.Code == http.StatusTooManyRequests {
		t.Error("read limited by the write bucket")
	}
}

func TestInvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.StructureRefreshCron = "every minute"
	if _, err := New(cfg, Deps{API: client.New("")}); err == nil {
		t.Error("expected an error for an invalid schedule")
	}
}
