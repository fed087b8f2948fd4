package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"props-bible/config"
	"props-bible/core/utils"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	cfg             *config.AppConfig
	router          *chi.Mux
	httpServer      *http.Server
	logger          *utils.Logger
	deps            ServerDeps
	activityTracker *sessionActivity
	loginLimiter    *requestLimiter
}

func NewServer(cfg *config.AppConfig, logger *utils.Logger, deps ServerDeps) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}
	perMin := 10
	if cfg != nil && cfg.Security.LoginRatePerMin > 0 {
		perMin = cfg.Security.LoginRatePerMin
	}
	s := &Server{
		cfg:             cfg,
		router:          chi.NewRouter(),
		logger:          logger,
		deps:            deps,
		activityTracker: newSessionActivity(),
		loginLimiter:    newLimiter(perMin, time.Minute),
	}
	s.registerRoutes()
	s.registerObservabilityRoutes()
	addr := ""
	if cfg != nil {
		addr = cfg.ListenAddr
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Printf("listening on %s (tls=%t)", s.httpServer.Addr, s.cfg != nil && s.cfg.TLSEnabled)
	var err error
	if s.cfg != nil && s.cfg.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
