package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/events"
)

// natsConn is the part of *nats.Conn the source uses.
type natsConn interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSSource subscribes to "<prefix>.>" with a single subscription, so
// signals are handed to the bus in the order the server delivers them.
// The last subject token names the signal when the envelope does not.
type NATSSource struct {
	nc     natsConn
	prefix string
	pub    Publisher
	log    *logrus.Entry
	sub    *nats.Subscription
}

// NewNATSSource creates a source for subjects under prefix.
func NewNATSSource(nc natsConn, prefix string, pub Publisher, log *logrus.Entry) *NATSSource {
	return &NATSSource{nc: nc, prefix: prefix, pub: pub, log: log}
}

// Subject returns the wildcard subject the source listens on.
func (s *NATSSource) Subject() string {
	return s.prefix + ".>"
}

// Start subscribes.
func (s *NATSSource) Start() error {
	sub, err := s.nc.Subscribe(s.Subject(), s.handle)
	if err != nil {
		return fmt.Errorf("nats: subscribe %s: %w", s.Subject(), err)
	}
	s.sub = sub
	s.log.WithField("subject", s.Subject()).Info("Subscribed to storefront signals on NATS")
	return nil
}

// Stop unsubscribes.
func (s *NATSSource) Stop() {
	if s.sub != nil && s.sub.IsValid() {
		s.log.Info("Unsubscribing NATS subscription...")
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.WithError(err).Error("Error during NATS Unsubscribe")
		}
	}
}

func (s *NATSSource) handle(msg *nats.Msg) {
	l := s.log.WithField("subject", msg.Subject)
	name := events.Name(strings.TrimPrefix(msg.Subject, s.prefix+"."))

	env, err := events.Decode(msg.Data, name)
	if err != nil {
		l.WithError(err).Error("Failed to decode signal")
		return
	}
	if err := forward(s.pub, env); err != nil {
		if errors.Is(err, ErrUnknownSignal) {
			l.WithError(err).Debug("Ignoring signal")
			return
		}
		l.WithError(err).Warn("Failed to enqueue signal")
	}
}
