// Package logging configures logrus the same way for every binary.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New sets the JSON formatter and level on the standard logger and returns
// an entry carrying the service and version fields. An unknown level falls
// back to info.
func New(service, version, level string) *logrus.Entry {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	entry := logrus.WithFields(logrus.Fields{
		"service": service,
		"version": version,
	})
	if err != nil && level != "" {
		entry.Warnf("Invalid LOG_LEVEL %q. Using default: info", level)
	}
	return entry
}

// Discard returns an entry whose output is thrown away. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
