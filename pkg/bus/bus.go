// Package bus delivers storefront signals to subscribed handlers one at a
// time, in publish order.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/events"
	"Storefront-Analytics-Bridge/pkg/router"
)

const defaultQueueSize = 1024

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("signal bus is closed")
	// ErrQueueFull is returned by Publish when the queue has no room.
	ErrQueueFull = errors.New("signal bus queue full")
)

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the publish queue capacity. Default: 1024.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithObserver registers a function that sees every envelope right before
// its handlers run, e.g. to refresh host page state.
func WithObserver(f func(events.Envelope)) Option {
	return func(b *Bus) { b.observer = f }
}

// WithLogger sets the logger. Default: the logrus standard logger.
func WithLogger(l *logrus.Entry) Option {
	return func(b *Bus) { b.log = l }
}

// Bus is an in-process publish/subscribe table. Transports publish from any
// goroutine; a single dispatch goroutine started by Run invokes handlers,
// so handlers never run concurrently with each other.
type Bus struct {
	mu        sync.RWMutex
	subs      map[events.Name][]router.Handler
	queue     chan events.Envelope
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
	observer  func(events.Envelope)
	log       *logrus.Entry
	queueSize int
}

// New creates a Bus. Call Run to start dispatching.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[events.Name][]router.Handler),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
		log:       logrus.NewEntry(logrus.StandardLogger()),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan events.Envelope, b.queueSize)
	return b
}

// Subscribe adds h to the handlers of name.
func (b *Bus) Subscribe(name events.Name, h router.Handler) error {
	if h == nil {
		return fmt.Errorf("subscribe %s: nil handler", name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], h)
	return nil
}

// Subscribed reports whether any handler is registered for name.
func (b *Bus) Subscribed(name events.Name) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name]) > 0
}

// Publish enqueues env without blocking.
func (b *Bus) Publish(env events.Envelope) error {
	select {
	case <-b.quit:
		return ErrClosed
	default:
	}

	select {
	case b.queue <- env:
		return nil
	case <-b.quit:
		return ErrClosed
	default:
		b.log.WithField("signal", env.Name).Warn("Signal bus queue full. Dropping signal")
		return ErrQueueFull
	}
}

// Run dispatches queued envelopes until Close is called and the queue is
// drained, or ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case env := <-b.queue:
			b.dispatch(ctx, env)
		case <-ctx.Done():
			return
		case <-b.quit:
			for {
				select {
				case env := <-b.queue:
					b.dispatch(ctx, env)
				default:
					return
				}
			}
		}
	}
}

// Close stops accepting signals and waits for Run to drain the queue.
// Close must only be called after Run has been started.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.quit) })
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, env events.Envelope) {
	if b.observer != nil {
		b.observer(env)
	}

	b.mu.RLock()
	handlers := b.subs[env.Name]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.WithField("signal", env.Name).Debug("No subscriber for signal")
		return
	}
	for _, h := range handlers {
		b.invoke(ctx, env, h)
	}
}

// invoke runs one handler, recovering a panic so the remaining handlers
// and later signals are still delivered.
func (b *Bus) invoke(ctx context.Context, env events.Envelope, h router.Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.WithFields(logrus.Fields{
				"signal":    env.Name,
				"signal_id": env.ID,
				"panic":     fmt.Sprint(rec),
			}).Error("Signal handler panicked")
		}
	}()
	h(ctx, env)
}
