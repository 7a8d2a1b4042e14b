package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/reaxar"
	reaerrors "github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/snapshot"
	"github.com/vango-dev/reaxar/pkg/store"
)

// maxBodySize bounds PUT and POST request bodies.
const maxBodySize = 1 << 20

// Config configures the inspector server.
type Config struct {
	// Address is the listen address (default: "127.0.0.1:7070").
	Address string

	// Metrics, if set, is mounted at /metrics.
	Metrics http.Handler

	// CheckOrigin validates websocket origins. Nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	// ReadHeaderTimeout is passed to http.Server.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default inspector configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:           "127.0.0.1:7070",
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Server is the inspector HTTP server.
type Server struct {
	rt       *reaxar.Runtime
	config   *Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates an inspector for rt. A nil config uses DefaultConfig.
func New(rt *reaxar.Runtime, config *Config) *Server {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	} else {
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
	}

	s := &Server{
		rt:     rt,
		config: config,
		logger: rt.Logger().With("component", "inspect"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/stores", func(r chi.Router) {
		r.Get("/", s.listStores)
		r.Get("/{key}", s.getStore)
		r.Put("/{key}", s.putStore)
		r.Post("/{key}/reset", s.resetStore)
	})
	r.Get("/services", s.listServices)
	r.Get("/snapshot", s.getSnapshot)
	r.Post("/snapshot", s.restoreSnapshot)
	r.Get("/ws/stores/{key}", s.watchStore)

	if s.config.Metrics != nil {
		r.Handle("/metrics", s.config.Metrics)
	}
	return r
}

// Handler returns the HTTP handler, for mounting in another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("inspector shutdown complete")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) listStores(w http.ResponseWriter, r *http.Request) {
	doc, err := snapshot.Capture(s.rt.Stores())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.Stores)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (store.Entry, bool) {
	key := chi.URLParam(r, "key")
	entry, ok := s.rt.Stores().Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, reaerrors.New(reaerrors.CodeStoreNotFound).
			WithKey(key).
			Wrap(store.ErrNotFound))
		return nil, false
	}
	return entry, true
}

func (s *Server) getStore(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.Snapshot())
}

func (s *Server) putStore(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := entry.SetJSON(body); err != nil {
		writeError(w, http.StatusBadRequest, reaerrors.New(reaerrors.CodeStoreTypeMismatch).
			WithKey(entry.Key()).
			Wrap(err))
		return
	}
	s.logger.Info("store updated", "key", entry.Key())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetStore(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	entry.Reset()
	s.logger.Info("store reset", "key", entry.Key())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Services().Keys())
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := snapshot.Capture(s.rt.Stores())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) restoreSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := snapshot.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	restored, err := snapshot.Restore(s.rt.Stores(), doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if restored == nil {
		restored = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"restored": restored})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var re *reaerrors.ReaError
	if !errors.As(err, &re) {
		re = reaerrors.Newf(reaerrors.CategoryRuntime, "%s", err.Error())
	}
	writeJSON(w, status, re)
}
