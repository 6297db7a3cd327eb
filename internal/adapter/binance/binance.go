package binance

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ingestflow/config"
	"ingestflow/internal/adapter"
	"ingestflow/internal/event"
	"ingestflow/internal/exception"
	"ingestflow/internal/metrics"
	"ingestflow/internal/symbols"
	"ingestflow/internal/topics"
	"ingestflow/logger"
)

const (
	defaultWSBase         = "wss://stream.binance.com:9443"
	defaultRESTBase       = "https://api.binance.com/api/v3"
	defaultReconnectDelay = 5 * time.Second
)

// Adapter streams trades and tickers from the Binance combined websocket
// feed.
type Adapter struct {
	dialer *websocket.Dialer
	log    *logger.Log
}

func init() {
	adapter.Register("binance", New())
}

func New() *Adapter {
	return &Adapter{
		dialer: websocket.DefaultDialer,
		log:    logger.GetLogger(),
	}
}

// Spec describes the adapter's endpoints for the devtools surface.
type Spec struct {
	Name      string   `yaml:"name" json:"name"`
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
	Channels  []string `yaml:"channels" json:"channels"`
}

// AdapterSpec returns the static endpoint spec for this venue.
func AdapterSpec() Spec {
	return Spec{
		Name:      "binance",
		Endpoints: []string{defaultWSBase, defaultRESTBase},
		Channels:  []string{"trade", "ticker"},
	}
}

// Connect resolves the symbol universe, derives subscription topics and runs
// one persistent websocket session, emitting a NormalizedEvent per payload
// to out. An empty universe or topic set returns nil without connecting.
// Session errors end the task unless the venue's reconnect policy says
// otherwise.
func (a *Adapter) Connect(ctx context.Context, cfg config.VenueConfig, out chan<- event.NormalizedEvent) error {
	log := a.log.WithComponent("binance_adapter").WithFields(logger.Fields{"venue": cfg.Name})

	resolver := symbols.NewResolver(cfg.HTTPTimeout, cfg.RateLimit)
	universe, err := resolver.Resolve(ctx, cfg)
	if err != nil {
		// Resolution failure must not kill the process; the venue task
		// degrades to an empty universe.
		log.WithError(err).Warn("symbol resolution failed, continuing with empty universe")
		universe = nil
	}

	// An empty universe means nothing to subscribe to, even when an
	// aggregate topic could be formed without symbols.
	if len(universe) == 0 {
		log.Info("empty symbol universe, adapter exiting")
		return nil
	}

	streams := topics.Build(cfg, universe)
	if len(streams) == 0 {
		log.Info("no stream topics configured, adapter exiting")
		return nil
	}

	url := streamURL(cfg.WSBase, streams)
	log.WithFields(logger.Fields{
		"symbols": len(universe),
		"topics":  len(streams),
		"url":     url,
	}).Info("starting websocket session")

	attempts := 0
	for {
		err := a.session(ctx, url, cfg, out, log)
		if err == nil {
			log.Info("websocket stream ended")
			return nil
		}
		if !cfg.Reconnect.Enabled {
			return err
		}
		attempts++
		if cfg.Reconnect.MaxAttempts > 0 && attempts >= cfg.Reconnect.MaxAttempts {
			log.WithError(err).WithFields(logger.Fields{"attempts": attempts}).Error("reconnect budget exhausted")
			return err
		}
		log.WithError(err).WithFields(logger.Fields{"attempt": attempts}).Warn("websocket session ended, reconnecting")
		if waitForReconnect(ctx, cfg.Reconnect.Delay) {
			return err
		}
	}
}

// session dials the stream URL and pumps frames until the socket closes.
func (a *Adapter) session(ctx context.Context, url string, cfg config.VenueConfig, out chan<- event.NormalizedEvent, log *logger.Entry) error {
	conn, _, err := a.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return exception.Validationf("connect %s: %v", url, err)
	}
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return exception.Validationf("read %s: %v", url, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		logger.IncrementFrameRead(len(data))

		payloads, err := demux(data)
		if err != nil {
			return err
		}

		for _, payload := range payloads {
			evt := buildEvent(cfg.Name, payload)
			select {
			case out <- evt:
				logger.IncrementEventEmitted(len(payload))
				metrics.IncrementIngested(cfg.Name)
			default:
				// No receiver keeping up; ingestion must not abort.
				logger.IncrementEventDiscarded()
				metrics.IncrementDropped(cfg.Name)
			}
		}
	}
}

// streamURL composes the subscription URL: a single topic uses the direct
// per-stream path, multiple topics the combined-stream path.
func streamURL(base string, streams []string) string {
	if base == "" {
		base = defaultWSBase
	}
	base = strings.TrimRight(base, "/")
	if len(streams) == 1 {
		return base + "/ws/" + streams[0]
	}
	return base + "/stream?streams=" + strings.Join(streams, "/")
}

func waitForReconnect(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
