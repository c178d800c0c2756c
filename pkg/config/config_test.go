package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Ntt", cfg.SearchTermKey)
	assert.Equal(t, "|", cfg.SearchPropertySeparator)
	assert.Equal(t, TransportNATS, cfg.SignalTransport)
	assert.Equal(t, CollectorMeasurement, cfg.Collector)
	assert.Equal(t, 5*time.Second, cfg.CollectorTimeout)
	assert.Equal(t, 1024, cfg.SignalQueueSize)
	assert.False(t, cfg.PreviewMode)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRACKING_ID_LIVE", "UA-1-1")
	t.Setenv("TRACKING_ID_TEST", "UA-2-1")
	t.Setenv("PREVIEW_MODE", "true")
	t.Setenv("VERIFICATION_CODE", "abc")
	t.Setenv("SITE_NAME", "Main Store")
	t.Setenv("SIGNAL_TRANSPORT", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("COLLECTOR_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportKafka, cfg.SignalTransport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	assert.Equal(t, 250*time.Millisecond, cfg.CollectorTimeout)

	rc := cfg.Router()
	assert.True(t, rc.PreviewMode)
	assert.Equal(t, "UA-2-1", rc.TrackingID())
	assert.Equal(t, "abc", rc.VerificationCode)
	assert.Equal(t, "Main Store", rc.SiteName)
	assert.Equal(t, "Ntt", rc.SearchTermKey)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("SIGNAL_TRANSPORT", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadKafkaRequiresBrokers(t *testing.T) {
	t.Setenv("SIGNAL_TRANSPORT", "kafka")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadCollectorEndpoint(t *testing.T) {
	t.Setenv("COLLECTOR_ENDPOINT", "not a url")
	_, err := Load()
	assert.Error(t, err)
}
