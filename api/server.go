// Package api emulates the timezone lookup service so the clock can be run
// and tested without network access or a real token.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"worldclock/datasource"
	"worldclock/logger"

	"github.com/rs/xid"
)

var log = logger.New("api")

// TimezonePath is where the emulated lookup endpoint is mounted
const TimezonePath = "/api/timezone/"

type meta struct {
	Code          string `json:"code"`
	ExecutionTime string `json:"execution_time"`
}

type timezoneInfo struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

type lookupData struct {
	Timezone timezoneInfo `json:"timezone"`
	Datetime Datetime     `json:"datetime"`
}

type lookupResponse struct {
	Meta meta        `json:"meta"`
	Data *lookupData `json:"data,omitempty"`
}

// Server represents the emulated lookup service
type Server struct {
	store *ZoneStore
	token string
	now   func() time.Time
	mux   *http.ServeMux

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server answering lookups from store. Requests must
// carry token.
func NewServer(store *ZoneStore, token string) *Server {
	mux := http.NewServeMux()

	server := &Server{
		store: store,
		token: token,
		now:   time.Now,
		mux:   mux,
	}
	server.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	mux.HandleFunc(TimezonePath, server.handleLookup)
	mux.HandleFunc("/api/zones", server.handleZones)

	// Health check
	mux.HandleFunc("/api/health", server.handleHealthCheck)

	return server
}

// Handler exposes the routes, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on port and blocks until the server stops. It returns
// http.ErrServerClosed once Shutdown has been called, even if Shutdown came
// first.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	s.server.Addr = ":" + strconv.Itoa(port)
	srv := s.server
	s.mu.Unlock()

	log.Info().Str("addr", srv.Addr).Msg("Starting emulated lookup API")
	return srv.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	return srv.Shutdown(ctx)
}

// handleLookup answers GET /api/timezone/?<zone>&token=<token>
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	started := s.now()
	requestID := xid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	zone := datasource.ZoneFromQuery(r.URL.RawQuery)
	reqLog := log.With().Str("request_id", requestID).Str("zone", zone).Logger()

	if r.URL.Query().Get("token") != s.token {
		reqLog.Warn().Msg("rejected token")
		s.writeJSON(w, http.StatusUnauthorized, lookupResponse{Meta: meta{Code: "401"}})
		return
	}

	entry, exists := s.store.Get(zone)
	if !exists {
		reqLog.Debug().Msg("unknown zone")
		s.writeJSON(w, http.StatusOK, lookupResponse{Meta: meta{Code: "404"}})
		return
	}

	if entry.Delay > 0 {
		select {
		case <-time.After(entry.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if entry.Status != 0 && entry.Status != http.StatusOK {
		http.Error(w, http.StatusText(entry.Status), entry.Status)
		return
	}

	if entry.RawBody != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(entry.RawBody))
		return
	}

	var datetime Datetime
	switch {
	case entry.Fixed != nil:
		datetime = *entry.Fixed
	case entry.Location != nil:
		datetime = DatetimeAt(s.now().In(entry.Location))
	default:
		datetime = DatetimeAt(s.now().UTC())
	}

	response := lookupResponse{
		Meta: meta{
			Code:          "200",
			ExecutionTime: s.now().Sub(started).String(),
		},
		Data: &lookupData{
			Timezone: timezoneInfo{ID: entry.ID, Location: entry.ID},
			Datetime: datetime,
		},
	}

	reqLog.Debug().Str("offset_hours", datetime.OffsetHours).Msg("answered lookup")
	s.writeJSON(w, http.StatusOK, response)
}

// handleZones lists the zones the emulated service knows
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	zones := s.store.Zones()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"zones": zones,
		"count": len(zones),
	})
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}
