package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewSetsFields(t *testing.T) {
	entry := New("analyticsbridge", "1.0.0", "debug")
	assert.Equal(t, "analyticsbridge", entry.Data["service"])
	assert.Equal(t, "1.0.0", entry.Data["version"])
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestNewFallsBackToInfo(t *testing.T) {
	New("svc", "v", "chatty")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
