package ops

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ingestflow/config"
	"ingestflow/internal/bus"
	"ingestflow/internal/metrics"
	"ingestflow/logger"
)

const eventPollInterval = 100 * time.Millisecond

// Server hosts the operations surface: health and readiness probes, the
// Prometheus registry and a live event tail. It only reads from the bus and
// the metrics registry.
type Server struct {
	cfg        config.OpsConfig
	log        *logger.Log
	bus        *bus.Bus
	httpServer *http.Server
}

// NewServer constructs the ops server when the feature is enabled. When
// disabled the returned server is nil and all its methods are no-ops.
func NewServer(cfg config.OpsConfig, b *bus.Bus, log *logger.Log) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)

	return &Server{
		cfg: cfg,
		log: log,
		bus: b,
	}
}

// Run starts the HTTP server and blocks until the provided context is
// cancelled or the underlying server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	s.log.WithComponent("ops_server").WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting ops server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/ready", func(c *gin.Context) {
		c.String(http.StatusOK, "ready")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/events", s.streamEvents)

	return router
}

// streamEvents tails the bus over SSE. Each request gets its own
// subscription; a client lagging beyond the bus capacity silently loses its
// oldest events, which is surfaced in the subscriber drop counter.
func (s *Server) streamEvents(c *gin.Context) {
	sub := s.bus.Subscribe()
	log := s.log.WithComponent("ops_server").WithFields(logger.Fields{
		"subscription": sub.ID(),
		"remote":       c.ClientIP(),
	})
	log.Info("event tail attached")

	lastDropped := uint64(0)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			log.Info("event tail detached")
			return false
		default:
		}

		if evt, ok := sub.Poll(); ok {
			if d := sub.Dropped(); d > lastDropped {
				metrics.AddSubscriberDropped(d - lastDropped)
				lastDropped = d
			}
			c.SSEvent("message", evt)
			return true
		}

		time.Sleep(eventPollInterval)
		return true
	})
}

// normalizeAddress accepts ":3000", "3000" or "host:3000" forms.
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "127.0.0.1:3000"
	}
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort("", addr)
	}
	return addr
}
