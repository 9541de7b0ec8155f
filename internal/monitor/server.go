// Package monitor serves run metrics and a small control API over HTTP, so
// an operator can suspend, resume or stop a session from another machine.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/stimkit/stimkit/internal/suspend"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// Status is the body of GET /api/status.
type Status struct {
	Suspended bool   `json:"suspended"`
	Active    bool   `json:"active"`
	Sequence  string `json:"sequence,omitempty"`
	State     string `json:"state,omitempty"`
}

// Progress reports the running sequence and its painter state.
type Progress func() (sequence, state string)

// Server exposes /metrics and /api/{status,suspend,resume,stop}.
type Server struct {
	flag     *suspend.Flag
	metrics  http.Handler
	progress Progress
	log      stimlog.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// New creates a server. metrics and progress may be nil.
func New(flag *suspend.Flag, metrics http.Handler, progress Progress, log stimlog.Logger) *Server {
	return &Server{
		flag:     flag,
		metrics:  metrics,
		progress: progress,
		log:      log.With("component", "Monitor"),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/api/suspend", s.suspend).Methods(http.MethodPost)
	r.HandleFunc("/api/resume", s.resume).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", s.stop).Methods(http.MethodPost)
	return r
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.srv = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	s.done = make(chan struct{})
	srv, done := s.srv, s.done
	s.mu.Unlock()

	s.log.Infof("Monitor listening on http://%s", listener.Addr())
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Monitor server failed: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}

func (s *Server) current() Status {
	st := Status{Suspended: s.flag.Suspended(), Active: s.flag.Active()}
	if s.progress != nil {
		st.Sequence, st.State = s.progress()
	}
	return st
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeStatus(w)
}

func (s *Server) suspend(w http.ResponseWriter, _ *http.Request) {
	s.log.Infof("Suspend requested over HTTP")
	s.flag.Suspend()
	s.writeStatus(w)
}

func (s *Server) resume(w http.ResponseWriter, _ *http.Request) {
	s.log.Infof("Resume requested over HTTP")
	s.flag.Resume()
	s.writeStatus(w)
}

func (s *Server) stop(w http.ResponseWriter, _ *http.Request) {
	s.log.Warnf("Stop requested over HTTP")
	s.flag.Stop()
	s.writeStatus(w)
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.current()); err != nil {
		s.log.Warnf("Failed to write status: %v", err)
	}
}
