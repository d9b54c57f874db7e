// Package server exposes the control protocol over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/dashd/internal/engine"
	"github.com/dokzlo13/dashd/internal/eventbus"
	"github.com/dokzlo13/dashd/internal/ledger"
	"github.com/dokzlo13/dashd/internal/protocol"
)

// maxCommandSize bounds the request body of POST /control.
const maxCommandSize = 1024

// History limits for GET /history.
const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Controller applies commands on the control loop.
type Controller interface {
	Submit(ctx context.Context, text string) (bool, error)
	Status(ctx context.Context) (string, error)
}

// StatusCache holds the most recently published status.
type StatusCache interface {
	Latest() (string, bool)
}

// History reads recorded statuses and commands, newest first.
type History interface {
	GetByType(eventType ledger.EventType, limit int) ([]*ledger.Entry, error)
	GetByTimeRange(start, end time.Time, limit int) ([]*ledger.Entry, error)
}

// Server is an HTTP server that hands commands to the control loop and
// publishes every handled command to the bus.
type Server struct {
	addr       string
	ctrl       Controller
	cache      StatusCache
	bus        *eventbus.Bus
	history    History
	limiter    *rate.Limiter
	httpServer *http.Server
	now        func() time.Time
}

// NewServer creates a new control server. cache and bus may be nil. A
// non-positive rps disables rate limiting.
func NewServer(host string, port int, ctrl Controller, cache StatusCache, bus *eventbus.Bus, rps float64, burst int) *Server {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		ctrl:    ctrl,
		cache:   cache,
		bus:     bus,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// SetHistory enables GET /history backed by h.
func (s *Server) SetHistory(h History) {
	s.history = h
}

// Handler returns the HTTP handler serving the control endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /control", s.handleControl)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /history", s.handleHistory)
	return s.rateLimited(mux)
}

// Run starts the control server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting control server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Control server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			log.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("Request rate limited")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleControl applies the command in the request body.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read control request body")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body) > maxCommandSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"accepted": false})
		return
	}

	text := strings.TrimRight(string(body), "\r\n")

	accepted, err := s.ctrl.Submit(r.Context(), text)
	if errors.Is(err, engine.ErrAbandoned) {
		log.Warn().
			Err(err).
			Str("command", text).
			Str("remote", r.RemoteAddr).
			Msg("Gave up waiting for control command, it may have been applied")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":            "control loop did not answer",
			"possibly_applied": true,
		})
		return
	}
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	log.Debug().
		Str("command", text).
		Bool("accepted", accepted).
		Str("remote", r.RemoteAddr).
		Msg("Received control command")

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeCommand,
			Data: map[string]any{
				"command":  text,
				"accepted": accepted,
				"remote":   r.RemoteAddr,
			},
		})
	}

	status := http.StatusOK
	if !accepted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"accepted": accepted})
}

// handleStatus returns the last published status, asking the board to
// publish one when nothing has been published yet.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if status, ok := s.cache.Latest(); ok {
			writeStatus(w, status)
			return
		}
	}

	if _, err := s.ctrl.Submit(r.Context(), protocol.QueryCommand); err != nil {
		s.writeLoopError(w, err)
		return
	}
	status, err := s.ctrl.Status(r.Context())
	if err != nil {
		s.writeLoopError(w, err)
		return
	}
	writeStatus(w, status)
}

type historyEntry struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source,omitempty"`
	EventID   string         `json:"event_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// handleHistory lists ledger entries, optionally filtered by ?type= and
// ?since= (RFC3339 time or a duration back from now), up to ?limit=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "history disabled"})
		return
	}

	q := r.URL.Query()
	now := s.now()

	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var since time.Time
	if v := q.Get("since"); v != "" {
		t, err := parseSince(v, now)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		since = t
	}

	var entries []*ledger.Entry
	var err error
	if v := q.Get("type"); v != "" {
		eventType := ledger.EventType(v)
		if !eventType.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("unknown event type %q", v)})
			return
		}
		entries, err = s.history.GetByType(eventType, limit)
		entries = newerThan(entries, since)
	} else {
		if since.IsZero() {
			since = time.UnixMilli(0)
		}
		entries, err = s.history.GetByTimeRange(since, now, limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read history")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to read history"})
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			ID:        e.ID,
			Type:      string(e.EventType),
			Timestamp: e.Timestamp,
			Source:    e.Source,
			EventID:   e.EventID,
			Payload:   e.Payload,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// parseSince accepts an RFC3339 time or a duration such as "15m" meaning
// that long before now.
func parseSince(v string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("since must be an RFC3339 time or a positive duration, got %q", v)
	}
	return now.Add(-d), nil
}

// newerThan drops entries recorded before since. entries are newest first.
func newerThan(entries []*ledger.Entry, since time.Time) []*ledger.Entry {
	if since.IsZero() {
		return entries
	}
	for i, e := range entries {
		if e.Timestamp.Before(since) {
			return entries[:i]
		}
	}
	return entries
}

func (s *Server) writeLoopError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrLoopClosed) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	log.Warn().Err(err).Msg("Control request failed")
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "control loop unavailable"})
}

func writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
