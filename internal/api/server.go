// Package api serves the doctor schedule HTTP API over the SQLite store.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medsched/internal/database"
	"medsched/internal/events"
	"medsched/internal/metrics"
	"medsched/internal/model"
)

// Store is the persistence the API needs.
type Store interface {
	GetWeeklySchedule(ctx context.Context, doctorID string) (model.FullTemplate, error)
	UpsertWeeklyDays(ctx context.Context, doctorID string, days []model.DaySchedule) error
	ListOverrides(ctx context.Context, doctorID string, q model.OverrideQuery) ([]model.DayOverride, error)
	CreateOverride(ctx context.Context, doctorID string, o model.DayOverride) (model.DayOverride, error)
	UpdateOverride(ctx context.Context, doctorID, id string, o model.DayOverride) (model.DayOverride, error)
	BookedAppointments(ctx context.Context, doctorID string, date model.Date) ([]database.Appointment, error)
}

var _ Store = (*database.DB)(nil)

// HTTPServer exposes the schedule API.
type HTTPServer struct {
	store   Store
	bus     *events.EventBus
	apiKeys []string
	log     zerolog.Logger
	server  *http.Server
}

// NewHTTPServer builds the router. Blank keys are ignored; with no keys left
// the API is open.
func NewHTTPServer(port int, store Store, bus *events.EventBus, apiKeys []string, logger *zerolog.Logger) *HTTPServer {
	if bus == nil {
		bus = events.NewEventBus()
	}
	s := &HTTPServer{
		store:   store,
		bus:     bus,
		apiKeys: nonBlank(apiKeys),
		log:     logger.With().Str("component", "api").Logger(),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/doctors/{doctorID}", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/schedule", s.handleGetSchedule)
		r.Put("/schedule", s.handlePutSchedule)
		r.Get("/availability", s.handleListAvailability)
		r.Post("/availability", s.handleCreateAvailability)
		r.Put("/availability/{id}", s.handleUpdateAvailability)
	})
	return r
}

// Start serves until ctx is done.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()
	s.log.Info().Str("addr", s.server.Addr).Msg("schedule api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("x-api-key")
		for _, key := range s.apiKeys {
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid api key")
	})
}

func nonBlank(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.IncAPIRequest(route, strconv.Itoa(status))
		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Str("request_id", reqID).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request completed")
	})
}
