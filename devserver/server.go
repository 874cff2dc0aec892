// Package devserver exposes a small HTTP surface for driving a running host
// during development: readiness, hot reload and page previews.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/duihost"
	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/services"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// DefaultRenderWidth is used for page previews without a width parameter.
const DefaultRenderWidth = 80

var (
	ErrServerNotStarted = errors.New("dev server not started")
	ErrServerStarted    = errors.New("dev server already started")
)

// Lifecycle is the part of the controller the dev server drives.
type Lifecycle interface {
	State() duihost.State
	OnReload(ctx context.Context) error
}

// Resolver resolves page requests.
type Resolver interface {
	Resolve(req duihost.PageRequest) (registry.Page, error)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Phase string `json:"phase"`
	Epoch uint64 `json:"epoch"`
	Error string `json:"error,omitempty"`
}

// PageResponse is the body of GET /pages/{pageID}.
type PageResponse struct {
	PageID  string           `json:"pageId"`
	Content string           `json:"content"`
	Links   []uiruntime.Link `json:"links,omitempty"`
	Font    string           `json:"font,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the development endpoints.
type Server struct {
	lifecycle Lifecycle
	resolver  Resolver
	logger    duihost.Logger
	router    chi.Router

	ShutdownTimeout time.Duration

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New builds a server over lifecycle and resolver. A nil logger discards output.
func New(lifecycle Lifecycle, resolver Resolver, logger duihost.Logger) *Server {
	s := &Server{
		lifecycle:       lifecycle,
		resolver:        resolver,
		logger:          logger,
		ShutdownTimeout: 5 * time.Second,
	}
	if s.logger == nil {
		s.logger = duihost.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/reload", s.handleReload)
	r.Get("/pages/{pageID}", s.handlePage)
	s.router = r
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerStarted
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dev server listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.server
	go func() {
		s.logger.Info("Starting dev server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dev server stopped", "error", err)
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

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return ErrServerNotStarted
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down dev server: %w", err)
	}
	s.logger.Info("Dev server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.lifecycle.State()
	resp := HealthResponse{Phase: st.Phase.String(), Epoch: st.Epoch}
	if st.Cause != nil {
		resp.Error = st.Cause.Error()
	}
	status := http.StatusServiceUnavailable
	if st.Ready() {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.lifecycle.OnReload(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, duihost.ErrHotReloadDisabled):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, duihost.ErrNotStarted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		// The restart went ahead; report the teardown failure alongside it.
		s.logger.Warn("Reload completed with teardown failure", "error", err)
	}
	writeJSON(w, http.StatusAccepted, HealthResponse{
		Phase: s.lifecycle.State().Phase.String(),
		Epoch: s.lifecycle.State().Epoch,
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	req := duihost.PageRequest{PageID: chi.URLParam(r, "pageID")}

	width := DefaultRenderWidth
	query := r.URL.Query()
	if raw := query.Get("width"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			width = n
		}
		query.Del("width")
	}
	if len(query) > 0 {
		req.Params = make(map[string]any, len(query))
		for k, v := range query {
			if len(v) == 1 {
				req.Params[k] = v[0]
			} else {
				req.Params[k] = v
			}
		}
	}

	page, err := s.resolver.Resolve(req)
	switch {
	case errors.Is(err, services.ErrPageNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, duihost.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := PageResponse{PageID: page.PageID(), Content: page.Render(width)}
	if nav, ok := page.(registry.Navigable); ok {
		resp.Links = nav.Links()
	}
	if styled, ok := page.(registry.Styled); ok {
		resp.Font = styled.FontName()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
