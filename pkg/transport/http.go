package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/bus"
	"Storefront-Analytics-Bridge/pkg/events"
)

const maxSignalBytes = 1 << 20

// Health tracks whether the collector came up. A degraded bridge keeps
// serving; it just forwards no hits.
type Health struct {
	mu     sync.RWMutex
	reason string
}

// SetDegraded marks the bridge degraded for reason.
func (h *Health) SetDegraded(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reason = reason
}

// Status returns "ok" or "degraded" and the degradation reason.
func (h *Health) Status() (string, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.reason != "" {
		return "degraded", h.reason
	}
	return "ok", ""
}

// MetaSource renders the document head annotations.
type MetaSource interface {
	HTML() string
}

// HTTPServer serves signal ingress next to the bridge's operational
// endpoints.
type HTTPServer struct {
	pub     Publisher
	health  *Health
	meta    MetaSource
	metrics http.Handler
	log     *logrus.Entry
}

// NewHTTPServer wires the handlers. pub may be nil when signals arrive over
// another transport; the ingress routes are then not registered.
func NewHTTPServer(pub Publisher, health *Health, meta MetaSource, metrics http.Handler, log *logrus.Entry) *HTTPServer {
	return &HTTPServer{pub: pub, health: health, meta: meta, metrics: metrics, log: log}
}

// Router returns the mux router.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	if s.pub != nil {
		r.HandleFunc("/api/signals", s.signalHandler).Methods("POST")
		r.HandleFunc("/api/signals/{name}", s.signalHandler).Methods("POST")
	}
	r.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	if s.meta != nil {
		r.HandleFunc("/meta", s.metaHandler).Methods("GET")
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}
	return r
}

func (s *HTTPServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, reason := s.health.Status()
	body := map[string]string{"status": status}
	code := http.StatusOK
	if reason != "" {
		body["reason"] = reason
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func (s *HTTPServer) metaHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s.meta.HTML())
}

// signalHandler accepts one envelope. The {name} path variable names the
// signal when the body does not.
func (s *HTTPServer) signalHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignalBytes))
	if err != nil {
		s.log.WithError(err).Error("Failed to read signal body")
		http.Error(w, "Invalid signal payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	env, err := events.Decode(data, events.Name(mux.Vars(r)["name"]))
	if err != nil {
		s.log.WithError(err).Error("Invalid signal payload")
		http.Error(w, "Invalid signal payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := forward(s.pub, env); err != nil {
		switch {
		case errors.Is(err, ErrUnknownSignal):
			s.log.WithError(err).Warn("Signal rejected: unknown name")
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, bus.ErrQueueFull):
			s.log.WithError(err).Warn("Signal rejected: bridge busy (queue full)")
			http.Error(w, "Service temporarily unavailable, please try again later.", http.StatusServiceUnavailable)
		case errors.Is(err, bus.ErrClosed):
			s.log.WithError(err).Warn("Signal rejected: bridge shutting down")
			http.Error(w, "Service shutting down, please try again later.", http.StatusServiceUnavailable)
		default:
			s.log.WithError(err).Error("Failed to enqueue signal")
			http.Error(w, "Failed to process signal", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":      env.ID,
		"message": "Signal received and queued for processing.",
	})
	s.log.WithFields(logrus.Fields{
		"signal":    env.Name,
		"signal_id": env.ID,
	}).Debug("Signal queued")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
