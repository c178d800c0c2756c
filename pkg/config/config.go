// Package config loads the bridge configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"Storefront-Analytics-Bridge/pkg/router"
)

// Signal transports.
const (
	TransportNATS  = "nats"
	TransportKafka = "kafka"
	TransportHTTP  = "http"
)

// Collector sinks.
const (
	CollectorMeasurement = "measurement"
	CollectorNATS        = "nats"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Port is the HTTP port for ingress, health, meta and metrics.
	Port     string `mapstructure:"PORT" validate:"required"`
	NatsURL  string `mapstructure:"NATS_URL"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// TrackingIDLive is the collector property used outside preview mode.
	TrackingIDLive string `mapstructure:"TRACKING_ID_LIVE"`
	// TrackingIDTest is the collector property used in preview mode.
	TrackingIDTest string `mapstructure:"TRACKING_ID_TEST"`
	PreviewMode    bool   `mapstructure:"PREVIEW_MODE"`
	// VerificationCode, when set outside preview mode, is published as the
	// site verification meta tag.
	VerificationCode string `mapstructure:"VERIFICATION_CODE"`
	// SiteName is the transaction affiliation when signals carry no site.
	SiteName string `mapstructure:"SITE_NAME"`

	SearchTermKey           string `mapstructure:"SEARCH_TERM_KEY" validate:"required"`
	SearchPropertySeparator string `mapstructure:"SEARCH_PROPERTY_SEPARATOR" validate:"required"`

	SignalTransport     string `mapstructure:"SIGNAL_TRANSPORT" validate:"oneof=nats kafka http"`
	SignalSubjectPrefix string `mapstructure:"SIGNAL_SUBJECT_PREFIX" validate:"required"`
	SignalQueueSize     int    `mapstructure:"SIGNAL_QUEUE_SIZE" validate:"gte=1"`

	// KafkaBrokers is a comma-separated list of broker addresses.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS" validate:"required_if=SignalTransport kafka"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	Collector         string        `mapstructure:"COLLECTOR" validate:"oneof=measurement nats"`
	CollectorEndpoint string        `mapstructure:"COLLECTOR_ENDPOINT" validate:"omitempty,url"`
	CollectorTimeout  time.Duration `mapstructure:"COLLECTOR_TIMEOUT" validate:"gt=0"`
	HitStream         string        `mapstructure:"HIT_STREAM" validate:"required"`

	// Async hit publisher (COLLECTOR=nats).
	PublishGoroutines    int           `mapstructure:"PUBLISH_GOROUTINES" validate:"gte=1"`
	PublishTaskQueueSize int           `mapstructure:"PUBLISH_TASK_QUEUE_SIZE" validate:"gte=1"`
	PublishAckTimeout    time.Duration `mapstructure:"PUBLISH_ACK_TIMEOUT" validate:"gt=0"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore missing .env

	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACKING_ID_LIVE", "")
	v.SetDefault("TRACKING_ID_TEST", "")
	v.SetDefault("PREVIEW_MODE", false)
	v.SetDefault("VERIFICATION_CODE", "")
	v.SetDefault("SITE_NAME", "")
	v.SetDefault("SEARCH_TERM_KEY", "Ntt")
	v.SetDefault("SEARCH_PROPERTY_SEPARATOR", "|")
	v.SetDefault("SIGNAL_TRANSPORT", TransportNATS)
	v.SetDefault("SIGNAL_SUBJECT_PREFIX", "STOREFRONT")
	v.SetDefault("SIGNAL_QUEUE_SIZE", 1024)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "storefront.signals")
	v.SetDefault("KAFKA_GROUP_ID", "storefront-analytics-bridge")
	v.SetDefault("COLLECTOR", CollectorMeasurement)
	v.SetDefault("COLLECTOR_ENDPOINT", "https://www.google-analytics.com/collect")
	v.SetDefault("COLLECTOR_TIMEOUT", "5s")
	v.SetDefault("HIT_STREAM", "ANALYTICS")
	v.SetDefault("PUBLISH_GOROUTINES", 4)
	v.SetDefault("PUBLISH_TASK_QUEUE_SIZE", 4096)
	v.SetDefault("PUBLISH_ACK_TIMEOUT", "5s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.SignalTransport = strings.ToLower(cfg.SignalTransport)
	cfg.Collector = strings.ToLower(cfg.Collector)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Collector == CollectorMeasurement && cfg.CollectorEndpoint == "" {
		return nil, errors.New("config: COLLECTOR_ENDPOINT must be set when COLLECTOR=measurement")
	}
	return &cfg, nil
}

// Router returns the configuration surface the event router reads.
func (c *Config) Router() router.Config {
	return router.Config{
		TrackingIDLive:   c.TrackingIDLive,
		TrackingIDTest:   c.TrackingIDTest,
		PreviewMode:      c.PreviewMode,
		VerificationCode: c.VerificationCode,
		SiteName:         c.SiteName,
		SearchTermKey:    c.SearchTermKey,
		SearchSeparator:  c.SearchPropertySeparator,
	}
}

// Brokers splits KafkaBrokers into trimmed, non-empty addresses.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
