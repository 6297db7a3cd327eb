package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ingestflow/config"
	"ingestflow/internal/adapter"
	_ "ingestflow/internal/adapter/binance"
	"ingestflow/internal/bus"
	"ingestflow/internal/event"
	"ingestflow/internal/metrics"
	"ingestflow/internal/ops"
	"ingestflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Ingestflow.Name,
		"version":     cfg.Ingestflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting ingestflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace)
	}
	if cfg.Logging.Report.Enabled || strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, cfg.Logging.Report.Interval)
	}

	metrics.Init()

	eventBus := bus.New(cfg.Bus.Capacity)
	publisher := eventBus.Publisher()

	opsServer := ops.NewServer(cfg.Ops, eventBus, log)
	go func() {
		if err := opsServer.Run(ctx); err != nil {
			log.WithError(err).Error("ops server terminated")
		}
	}()

	out := make(chan event.NormalizedEvent, cfg.Bus.ForwardBuffer)
	go forward(ctx, out, publisher, log)

	started := 0
	for _, venue := range cfg.Venues {
		a, ok := adapter.Lookup(venue.Name)
		if !ok {
			entry := log.WithComponent("ingestd").WithFields(logger.Fields{
				"venue":      venue.Name,
				"registered": adapter.Names(),
			})
			if config.IsProductionLike(config.AppEnvironment()) {
				entry.Error("no adapter registered for venue")
				os.Exit(1)
			}
			entry.Warn("no adapter registered for venue, skipping")
			continue
		}

		started++
		go func(vc config.VenueConfig, a adapter.Adapter) {
			vlog := log.WithComponent("ingestd").WithFields(logger.Fields{"venue": vc.Name})
			if err := a.Connect(ctx, vc, out); err != nil {
				vlog.WithError(err).Error("venue adapter terminated")
				return
			}
			vlog.Info("venue adapter finished")
		}(venue, a)
	}

	log.WithFields(logger.Fields{"venues": started}).Info("ingestflow started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutting down")
	cancel()
}

// flowLogEvery is the number of forwarded events between data flow log
// entries.
const flowLogEvery = 1000

// forward drains the adapter output channel into the bus publisher.
func forward(ctx context.Context, out <-chan event.NormalizedEvent, publisher *bus.Publisher, log *logger.Log) {
	flow := log.WithComponent("forwarder")
	forwarded := 0
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-out:
			publisher.Publish(evt)
			metrics.IncrementBusPublished()
			logger.RecordChannelMessage("bus_publish", len(evt.Payload))
			forwarded++
			if forwarded%flowLogEvery == 0 {
				logger.LogDataFlowEntry(flow, "adapters", "bus", forwarded, "normalized_event")
			}
		}
	}
}
