package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"go.uber.org/zap"
)

type staticState struct {
	state domain.State
}

func (s staticState) Snapshot() domain.State {
	return s.state
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "now_playing.jpg"), []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(zap.NewNop(), nil)
	state := staticState{state: domain.State{
		Poster:         &domain.Poster{ID: 7, Name: "Alien"},
		TransitionType: "fade",
		DisplaySpeedMS: 15000,
	}}
	router := NewRouter(zap.NewNop(), state, hub, metrics.New(), dir)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK, "ok"},
		{"state", http.MethodGet, "/api/state", http.StatusOK, `"name":"Alien"`},
		{"reload", http.MethodPost, "/api/reload", http.StatusAccepted, "reloading"},
		{"reload wrong method", http.MethodGet, "/api/reload", http.StatusMethodNotAllowed, ""},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "nowshowing_http_requests_total"},
		{"artwork", http.MethodGet, "/artwork/now_playing.jpg", http.StatusOK, "jpeg"},
		{"missing artwork", http.MethodGet, "/artwork/none.jpg", http.StatusNotFound, ""},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	select {
	case msg := <-hub.Inbound():
		if msg.Type != MessageReload {
			t.Errorf("expected reload message, got %q", msg.Type)
		}
	default:
		t.Error("reload was not queued")
	}
}

func TestRouter_ReloadBusy(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	for hub.Submit(ClientMessage{Type: MessageReload}) {
	}
	router := NewRouter(zap.NewNop(), staticState{}, hub, nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	state := staticState{state: domain.State{Loading: true}}
	srv := NewServer(zap.NewNop(), "127.0.0.1:0", NewRouter(zap.NewNop(), state, hub, nil, ""), hub)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var got domain.State
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Loading {
		t.Error("expected loading state")
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/healthz"); err == nil {
		t.Error("expected server to be closed")
	}
}
