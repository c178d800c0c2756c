// Package transport feeds storefront signals from NATS, Kafka or HTTP into
// the signal bus.
package transport

import (
	"errors"
	"fmt"

	"Storefront-Analytics-Bridge/pkg/events"
)

// ErrUnknownSignal is returned for envelopes naming a signal the bridge
// does not handle.
var ErrUnknownSignal = errors.New("unknown signal")

// Publisher accepts decoded envelopes, e.g. *bus.Bus.
type Publisher interface {
	Publish(env events.Envelope) error
}

// forward checks the signal name and hands env to pub.
func forward(pub Publisher, env events.Envelope) error {
	if !events.Known(env.Name) {
		return fmt.Errorf("%w: %q", ErrUnknownSignal, env.Name)
	}
	return pub.Publish(env)
}
