// Package status exposes the live client's state over a small local HTTP
// API with health, per-auction counters, timelines and a live event stream.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/realtime-client/internal/router"
)

// Topics is the read side of the router
type Topics interface {
	Topics() []string
	Stats(topicID string) router.Stats
	Timeline(topicID string) router.Timeline
}

// ConnectionInfo describes the chat connection
type ConnectionInfo struct {
	State    string `json:"state"`
	Identity string `json:"identity,omitempty"`
	Attempts int    `json:"attempts"`
}

// Handler serves the status API
type Handler struct {
	service    string
	topics     Topics
	connection func() ConnectionInfo
	hub        *Hub
	logger     zerolog.Logger
}

// NewHandler creates a status handler. connection may be nil.
func NewHandler(service string, topics Topics, connection func() ConnectionInfo, logger zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		topics:     topics,
		connection: connection,
		logger:     logger.With().Str("component", "status").Logger(),
	}
}

// WithStream serves hub on /auctions/{id}/stream
func (h *Handler) WithStream(hub *Hub) *Handler {
	h.hub = hub
	return h
}

// SetupRoutes configures the status routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/stats/auctions", h.ListStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/auctions/{id}", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/auctions/{id}/timeline", h.GetTimeline).Methods(http.MethodGet)
	if h.hub != nil {
		r.HandleFunc("/auctions/{id}/stream", h.hub.ServeStream).Methods(http.MethodGet)
	}

	r.Use(h.loggingMiddleware)
	return r
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "healthy",
		"service": h.service,
	}
	if h.connection != nil {
		body["connection"] = h.connection()
	}
	if h.hub != nil {
		body["streamClients"] = h.hub.Total()
	}
	respondJSON(w, http.StatusOK, body)
}

// ListStats returns counters for every known auction
func (h *Handler) ListStats(w http.ResponseWriter, _ *http.Request) {
	ids := h.topics.Topics()
	stats := make([]router.Stats, 0, len(ids))
	for _, id := range ids {
		stats = append(stats, h.topics.Stats(id))
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetStats returns counters for one auction
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	if auctionID == "" {
		respondError(w, http.StatusBadRequest, "Auction ID is required")
		return
	}
	respondJSON(w, http.StatusOK, h.topics.Stats(auctionID))
}

// GetTimeline returns the visible events of one auction
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	tl := h.topics.Timeline(auctionID)
	respondJSON(w, http.StatusOK, map[string]any{
		"auctionId": auctionID,
		"state":     tl.State().String(),
		"error":     tl.Err,
		"events":    tl.Events,
	})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// NewServer wraps handler in an http.Server with the usual timeouts
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
