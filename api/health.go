package api

import (
	"net/http"

	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/session"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	sessions session.Store
	store    vectorstore.Store
	logger   log.Logger
}

// NewHealthHandler creates a new health handler. The session store and the
// vector store are both checked by the readiness probe.
func NewHealthHandler(sessions session.Store, store vectorstore.Store, logger log.Logger) *HealthHandler {
	return &HealthHandler{sessions: sessions, store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness is a liveness probe endpoint.
// Returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness is a readiness probe endpoint.
// Returns 200 OK only if both the session store and the vector index
// respond. An empty index is still ready; an unreachable one is not.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil || h.store == nil {
		http.Error(w, "dependencies not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.sessions.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "dependency", "session store", "error", err)
		http.Error(w, "session store not ready", http.StatusServiceUnavailable)
		return
	}
	if _, err := h.store.Stats(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "dependency", "vector index", "error", err)
		http.Error(w, "vector index not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
