package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inventhq/invent/internal/store/storetest"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(nil, NewReference(storetest.NewBackend(), discardLogger()), "test")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := decode[map[string]string](t, w); got["version"] != "test" {
		t.Errorf("response = %v", got)
	}
}

func TestReady(t *testing.T) {
	backend := storetest.NewBackend()
	ref := NewReference(backend, discardLogger())
	redisDown := false
	ping := pingFunc(func(context.Context) error {
		if redisDown {
			return errors.New("connection refused")
		}
		return nil
	})
	h := NewHealthHandler(ping, ref, "test")

	ready := func() (int, map[string]string) {
		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest("GET", "/ready", nil))
		return w.Code, decode[map[string]string](t, w)
	}

	if code, got := ready(); code != http.StatusServiceUnavailable || got["reference"] != "not_loaded" {
		t.Errorf("before refresh: %d %v", code, got)
	}

	if err := ref.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if code, got := ready(); code != http.StatusOK || got["redis"] != "connected" {
		t.Errorf("after refresh: %d %v", code, got)
	}

	redisDown = true
	if code, got := ready(); code != http.StatusServiceUnavailable || got["redis"] != "disconnected" {
		t.Errorf("redis down: %d %v", code, got)
	}
}

func TestReferenceRefreshKeepsData(t *testing.T) {
	backend := storetest.NewBackend()
	ref := NewReference(backend, discardLogger())
	if err := ref.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	loaded := ref.LoadedAt()

	backend.Errs["Structure"] = errors.New("down")
	if err := ref.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if ref.Structure() == nil || !ref.LoadedAt().Equal(loaded) {
		t.Error("failed refresh dropped the cached data")
	}

	sys, err := ref.System(context.Background(), backend)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if sys.PlatformDonor().ID != 1 || sys.Profile() != nil {
		t.Errorf("system store = donor %d, profile %v", sys.PlatformDonor().ID, sys.Profile())
	}
}
