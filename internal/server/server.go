package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"fanin/internal/config"
	"fanin/internal/engine"
	"fanin/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server hosts the configured services and aggregation over HTTP:
//
//	GET  /healthz
//	GET  /v1/policies
//	GET  /v1/services
//	GET  /v1/services/:id/retrieve?input=...
//	POST /v1/aggregate
type Server struct {
	engine *engine.Engine
	log    *logger.Logger
	router *gin.Engine
}

func New(eng *engine.Engine, cfg config.Server, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{engine: eng, log: log}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))

	r.GET("/healthz", s.health)

	api := r.Group("/v1")
	{
		api.GET("/policies", s.listPolicies)
		api.GET("/services", s.listServices)
		api.GET("/services/:id/retrieve", s.retrieve)
		api.POST("/aggregate", RateLimit(limiter), s.runAggregate)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}
