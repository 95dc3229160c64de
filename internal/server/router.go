package server

import (
	"encoding/json"
	"net/http"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ArtworkPrefix is the URL prefix generated artwork is served under
const ArtworkPrefix = "/artwork/"

// StateSource provides the current presentation state
type StateSource interface {
	Snapshot() domain.State
}

// NewRouter builds the local presentation API
func NewRouter(
	logger *zap.Logger,
	state StateSource,
	hub *Hub,
	m *metrics.Metrics,
	artworkDir string,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.RequestMiddleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(logger, w, http.StatusOK, state.Snapshot())
		})
		r.Post("/reload", func(w http.ResponseWriter, _ *http.Request) {
			if !hub.Submit(ClientMessage{Type: MessageReload}) {
				writeJSON(logger, w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
				return
			}
			writeJSON(logger, w, http.StatusAccepted, map[string]string{"status": "reloading"})
		})
		r.Get("/ws", hub.ServeWS)
	})

	if artworkDir != "" {
		fs := http.StripPrefix(ArtworkPrefix, http.FileServer(http.Dir(artworkDir)))
		r.Get(ArtworkPrefix+"*", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, req)
		})
	}

	return r
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", zap.Error(err))
	}
}
