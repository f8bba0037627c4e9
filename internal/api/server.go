// Package api assembles the HTTP server: routes, middleware and the
// shared stores the handlers need.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridcapacity/internal/api/handlers"
	"gridcapacity/internal/api/middleware"
	"gridcapacity/internal/config"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/history"
)

// Server is the assembled API server.
type Server struct {
	cfg      config.Server
	log      *zap.Logger
	history  *history.Store
	sessions *handlers.SessionStore
	http     *http.Server
}

// New builds the server from its configuration. The caller owns Close.
func New(cfg config.Server, env envs.Envs, log *zap.Logger) (*Server, error) {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	sessions := handlers.NewSessionStore(cfg.SessionTTL.Std())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))

	sessionHandler := handlers.NewSessionHandler(sessions, cfg.CaseDir, log)
	capacityHandler := handlers.NewCapacityHandler(store, cfg.CaseDir, env, log)
	runsHandler := handlers.NewRunsHandler(store, log)
	casesHandler := handlers.NewCasesHandler(cfg.CaseDir, log)

	v1 := router.Group("/v1")
	{
		v1.GET("/health", handlers.Health)

		v1.POST("/sessions", sessionHandler.Create)
		v1.DELETE("/sessions/:id", sessionHandler.Delete)
		v1.POST("/sessions/:id/open", sessionHandler.Open)
		v1.POST("/sessions/:id/solve", sessionHandler.Solve)
		v1.GET("/sessions/:id/network", sessionHandler.Network)
		v1.GET("/sessions/:id/results", sessionHandler.Results)
		v1.POST("/sessions/:id/modifications", sessionHandler.Modify)

		v1.POST("/capacity", capacityHandler.Run)
		v1.GET("/runs", runsHandler.List)
		v1.GET("/runs/:id", runsHandler.Get)
		v1.GET("/cases", casesHandler.List)
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		history:  store,
		sessions: sessions,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout.Std(),
			WriteTimeout: cfg.WriteTimeout.Std(),
		},
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("api server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and releases the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.sessions.Close()
	if cerr := s.history.Close(); err == nil {
		err = cerr
	}
	return err
}
