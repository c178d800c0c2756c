package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/bus"
	"Storefront-Analytics-Bridge/pkg/collector"
	"Storefront-Analytics-Bridge/pkg/config"
	"Storefront-Analytics-Bridge/pkg/logging"
	"Storefront-Analytics-Bridge/pkg/metrics"
	"Storefront-Analytics-Bridge/pkg/router"
	"Storefront-Analytics-Bridge/pkg/storefront"
	"Storefront-Analytics-Bridge/pkg/transport"
)

const (
	serviceName = "analyticsbridge"
	version     = "1.0.0"
)

// sink is a collector that must be closed on shutdown.
type sink interface {
	router.Collector
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(serviceName, version, cfg.LogLevel)

	log.WithFields(logrus.Fields{
		"transport": cfg.SignalTransport,
		"collector": cfg.Collector,
		"preview":   cfg.PreviewMode,
	}).Info("Starting AnalyticsBridge...")

	// NATS is needed for the NATS transport and the JetStream collector.
	var nc *nats.Conn
	if cfg.SignalTransport == config.TransportNATS || cfg.Collector == config.CollectorNATS {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name(serviceName))
		if err != nil {
			log.WithError(err).Fatalf("Failed to connect to NATS at %s", cfg.NatsURL)
		}
		defer nc.Close()
		log.Infof("Connected to NATS server at %s", cfg.NatsURL)
	}

	rec := metrics.New()
	session := storefront.NewSession()
	head := storefront.NewHeadAnnotations()
	health := &transport.Health{}

	signals := bus.New(
		bus.WithQueueSize(cfg.SignalQueueSize),
		bus.WithObserver(session.Observe),
		bus.WithLogger(log.WithField("component", "bus")),
	)

	var hitSink sink
	switch cfg.Collector {
	case config.CollectorNATS:
		js, err := nc.JetStream()
		if err != nil {
			log.WithError(err).Fatal("Failed to get JetStream context")
		}
		hitSink = collector.NewJetStream(js, cfg.HitStream,
			collector.WithPublisherPool(cfg.PublishGoroutines, cfg.PublishTaskQueueSize),
			collector.WithAckTimeout(cfg.PublishAckTimeout),
			collector.WithJetStreamLogger(log.WithField("component", "collector")),
		)
	default:
		hitSink = collector.NewMeasurement(cfg.CollectorEndpoint,
			collector.WithTimeout(cfg.CollectorTimeout),
			collector.WithMeasurementLogger(log.WithField("component", "collector")),
		)
	}

	rt := router.New(cfg.Router(), router.Deps{
		Cart:      session,
		Location:  session,
		Site:      session,
		Collector: hitSink,
		Meta:      head,
		Metrics:   rec,
		Log:       log.WithField("component", "router"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, cancelInit := context.WithTimeout(ctx, cfg.CollectorTimeout)
	if err := rt.Activate(initCtx, signals); err != nil {
		// Keep serving health, meta and metrics; no handler is subscribed.
		health.SetDegraded(err.Error())
		log.WithError(err).Error("Analytics disabled for this process")
	}
	cancelInit()

	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		signals.Run(ctx)
	}()

	// Signal sources.
	var ingress transport.Publisher
	var natsSource *transport.NATSSource
	var kafkaSource *transport.KafkaSource
	kafkaCtx, stopKafka := context.WithCancel(ctx)
	defer stopKafka()
	kafkaDone := make(chan struct{})
	switch cfg.SignalTransport {
	case config.TransportNATS:
		natsSource = transport.NewNATSSource(nc, cfg.SignalSubjectPrefix, signals, log.WithField("component", "nats"))
		if err := natsSource.Start(); err != nil {
			log.WithError(err).Fatal("Failed to subscribe to storefront signals")
		}
	case config.TransportKafka:
		kafkaSource = transport.NewKafkaSource(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID, signals, log.WithField("component", "kafka"))
		go func() {
			defer close(kafkaDone)
			log.WithField("topic", cfg.KafkaTopic).Info("Kafka consumer started")
			if err := kafkaSource.Run(kafkaCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Kafka consumer stopped")
			}
		}()
	case config.TransportHTTP:
		ingress = signals
	}

	srv := transport.NewHTTPServer(ingress, health, head, rec.Handler(), log.WithField("component", "http"))
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("AnalyticsBridge HTTP server starting on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("AnalyticsBridge HTTP server ListenAndServe error")
		}
	}()

	// Shutdown handling.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("AnalyticsBridge shutting down...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	// Stop the sources first so the bus can drain what it already holds.
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("AnalyticsBridge HTTP server shutdown error")
	}
	if natsSource != nil {
		natsSource.Stop()
	}
	if kafkaSource != nil {
		stopKafka()
		<-kafkaDone
		if err := kafkaSource.Close(); err != nil {
			log.WithError(err).Error("Error closing Kafka reader")
		}
	}

	signals.Close()
	<-busDone
	cancel()

	if err := hitSink.Close(); err != nil {
		log.WithError(err).Error("Error closing collector")
	}

	if nc != nil {
		log.Info("Draining NATS connection...")
		if err := nc.Drain(); err != nil {
			log.WithError(err).Error("Error draining NATS connection")
		}
	}

	log.Info("AnalyticsBridge shut down.")
}
