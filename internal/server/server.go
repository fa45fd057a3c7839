// Package server exposes stored runs over a read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/rankprep/internal/storage"
	"github.com/runnerr0/rankprep/internal/views"
)

const shutdownTimeout = 5 * time.Second

// Server serves the rankprep read API.
type Server struct {
	store   storage.Store
	loc     *time.Location
	logCtx  *log.Entry
	handler http.Handler
}

// New returns a Server reading from store. Times are rendered in loc.
func New(store storage.Store, loc *time.Location, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		store:  store,
		loc:    loc,
		logCtx: log.NewEntry(logger).WithField("component", "server"),
	}
	// Logged outside the router: subrouter middleware masks mux's 405.
	s.handler = s.logRequests(s.newRouter())
	return s
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/runs", s.listRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.getRun).Methods("GET")
	api.HandleFunc("/runs/{id}/sessions", s.listSessions).Methods("GET")
	api.HandleFunc("/runs/{id}/bookings", s.listBookings).Methods("GET")

	return r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logCtx.WithField("addr", addr).Info("Listening.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logCtx.Info("Shutting down.")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logCtx.WithFields(log.Fields{
			"method":           r.Method,
			"path":             r.URL.Path,
			"time_taken_in_ms": time.Since(start).Milliseconds(),
		}).Debug("Handled request.")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logCtx.WithError(err).Error("Failed to encode response.")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	var badReq badRequest
	if errors.As(err, &badReq) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logCtx.WithError(err).Error("Request failed.")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// intParam reads an integer query parameter no smaller than least.
func intParam(r *http.Request, name string, def, least int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < least {
		return 0, badRequest{msg: "invalid " + name + ": " + v}
	}
	return n, nil
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views.FromStats(stats, s.loc))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20, 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), storage.RunQuery{
		Vcid:  r.URL.Query().Get("vcid"),
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views.FromRuns(runs, s.loc))
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views.FromRun(*run, s.loc))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := intParam(r, "limit", 50, 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sessions, err := s.store.ListSessions(r.Context(), storage.SessionQuery{
		RunID:      id,
		TrackingID: r.URL.Query().Get("tracking_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views.FromSessions(sessions, s.loc))
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := intParam(r, "limit", 50, 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirmed"))

	bookings, err := s.store.ListBookings(r.Context(), storage.BookingQuery{
		RunID:         id,
		Vendor:        r.URL.Query().Get("vendor"),
		ConfirmedOnly: confirmed,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views.FromBookings(bookings, s.loc))
}
