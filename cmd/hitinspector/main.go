package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/collector"
	"Storefront-Analytics-Bridge/pkg/config"
	"Storefront-Analytics-Bridge/pkg/logging"
)

const (
	queueName   = "HIT_INSPECTOR_QUEUE"
	durableName = "HIT_INSPECTOR_DURABLE"
	ackWait     = 30 * time.Second
	maxDeliver  = 3
)

var hitsInspected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hitinspector_hits_total",
	Help: "Hits read from the hit stream, by hit type.",
}, []string{"type"})

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New("hitinspector", "1.0.0", cfg.LogLevel)
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "2112"
	}

	log.Info("Starting HitInspector...")

	nc, err := nats.Connect(cfg.NatsURL, nats.Name("hitinspector"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to NATS")
	}
	defer nc.Close()
	log.WithField("nats_url", cfg.NatsURL).Info("Connected to NATS server")

	js, err := nc.JetStream()
	if err != nil {
		log.WithError(err).Fatal("Failed to get JetStream context")
	}

	subject := cfg.HitStream + ".hits.*"
	consumerConfig := &nats.ConsumerConfig{
		Durable:        durableName,
		Name:           durableName,
		Description:    "Durable consumer for Hit Inspector",
		FilterSubject:  subject,
		DeliverSubject: durableName + "_INBOX",
		DeliverGroup:   queueName,
		AckPolicy:      nats.AckExplicitPolicy,
		AckWait:        ackWait,
		MaxDeliver:     maxDeliver,
		ReplayPolicy:   nats.ReplayInstantPolicy,
	}

	_, err = js.ConsumerInfo(cfg.HitStream, durableName)
	if err != nil {
		if errors.Is(err, nats.ErrConsumerNotFound) {
			log.Infof("Consumer %s not found, creating...", durableName)
			if _, addErr := js.AddConsumer(cfg.HitStream, consumerConfig); addErr != nil {
				log.WithError(addErr).Fatalf("Failed to add durable consumer %s", durableName)
			}
			log.Infof("Durable consumer %s created", durableName)
		} else {
			log.WithError(err).Fatalf("Failed to get consumer info for %s", durableName)
		}
	}

	sub, err := js.QueueSubscribe(subject, queueName, func(msg *nats.Msg) {
		l := log.WithField("subject", msg.Subject)
		if meta, err := msg.Metadata(); err == nil {
			l = l.WithFields(logrus.Fields{
				"stream_seq":    meta.Sequence.Stream,
				"num_delivered": meta.NumDelivered,
			})
		}

		var hm collector.HitMessage
		if err := json.Unmarshal(msg.Data, &hm); err != nil {
			l.WithError(err).Error("Failed to unmarshal hit")
			if termErr := msg.Term(); termErr != nil {
				l.WithError(termErr).Error("Error sending Term for unmarshalling error")
			}
			return
		}

		hitsInspected.WithLabelValues(string(hm.Type)).Inc()
		l.WithFields(logrus.Fields{
			"tracking_id": hm.TrackingID,
			"hit_type":    hm.Type,
			"sent_at":     hm.SentAt,
			"hit":         string(hm.Hit),
		}).Info("Hit received")

		if err := msg.Ack(); err != nil {
			l.WithError(err).Error("Error sending ACK")
		}
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.BindStream(cfg.HitStream),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to subscribe to hit stream")
	}
	log.WithField("subject", subject).Info("HitInspector successfully subscribed")

	metricsRouter := http.NewServeMux()
	metricsRouter.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + metricsPort,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", metricsPort).Info("Starting metrics server")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server ListenAndServe error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := metricsSrv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Metrics server shutdown error")
	}

	if sub != nil && sub.IsValid() {
		log.Info("Unsubscribing NATS subscription...")
		if err := sub.Unsubscribe(); err != nil {
			log.WithError(err).Error("Error during NATS Unsubscribe")
		}
	}

	log.Info("HitInspector shut down")
}
