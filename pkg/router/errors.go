package router

import "errors"

var (
	// ErrCollectorUnavailable means the collector sink failed to initialize.
	// Activation stops and no signal is subscribed.
	ErrCollectorUnavailable = errors.New("analytics collector unavailable")
	// ErrMissingPendingSnapshot means an order submission arrived with no
	// snapshot captured by a preceding ORDER_CREATE.
	ErrMissingPendingSnapshot = errors.New("no pending order snapshot")
)
