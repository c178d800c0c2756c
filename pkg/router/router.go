// Package router maps storefront lifecycle signals to analytics hits.
//
// The Router owns the registration table (signal name to handler) and the
// pending order snapshot. ORDER_CREATE captures the live cart into the
// pending slot; ORDER_SUBMISSION_SUCCESS consumes it, sends one line-item
// hit per item and one transaction hit, and empties the slot.
//
// Precondition, relied on and not verified: every ORDER_SUBMISSION_SUCCESS
// is preceded by its own ORDER_CREATE with no other ORDER_CREATE between
// them. A second ORDER_CREATE overwrites the pending snapshot.
package router

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/events"
	"Storefront-Analytics-Bridge/pkg/hits"
	"Storefront-Analytics-Bridge/pkg/metrics"
	"Storefront-Analytics-Bridge/pkg/snapshot"
)

// VerificationMetaName is the meta tag name carrying the site verification code.
const VerificationMetaName = "google-site-verification"

// Collector delivers hits to the analytics backend.
type Collector interface {
	Init(ctx context.Context, trackingID string) error
	Send(ctx context.Context, hit hits.Hit) error
}

// PageMetaWriter annotates the storefront document head.
type PageMetaWriter interface {
	WriteMeta(name, content string) error
}

// Location reads the host page's current route and title.
type Location interface {
	Path() string
	Title() string
}

// Site reads the storefront site name used as transaction affiliation.
type Site interface {
	SiteName() string
}

// Handler handles one delivered signal. Handlers never return errors: every
// failure is logged and absorbed at the handler boundary.
type Handler func(ctx context.Context, env events.Envelope)

// Subscriber registers handlers with a signal transport.
type Subscriber interface {
	Subscribe(name events.Name, h Handler) error
}

// Config is the configuration surface read at activation.
type Config struct {
	TrackingIDLive   string
	TrackingIDTest   string
	PreviewMode      bool
	VerificationCode string
	// SiteName is the affiliation used when the host does not report one.
	SiteName        string
	SearchTermKey   string
	SearchSeparator string
}

// TrackingID returns the test id in preview mode and the live id otherwise.
func (c Config) TrackingID() string {
	if c.PreviewMode {
		return c.TrackingIDTest
	}
	return c.TrackingIDLive
}

// Deps are the collaborators a Router reads from and writes to.
type Deps struct {
	Cart      snapshot.Cart
	Location  Location
	Site      Site
	Collector Collector
	Meta      PageMetaWriter    // Optional.
	Metrics   *metrics.Recorder // Optional.
	Log       *logrus.Entry
}

// Router dispatches lifecycle signals to hit-producing handlers.
type Router struct {
	cfg       Config
	cart      snapshot.Cart
	location  Location
	site      Site
	collector Collector
	meta      PageMetaWriter
	metrics   *metrics.Recorder
	log       *logrus.Entry

	slot  pendingSlot
	table map[events.Name]Handler
}

// New builds a Router and its registration table. Nothing is subscribed
// until Activate succeeds.
func New(cfg Config, deps Deps) *Router {
	r := &Router{
		cfg:       cfg,
		cart:      deps.Cart,
		location:  deps.Location,
		site:      deps.Site,
		collector: deps.Collector,
		meta:      deps.Meta,
		metrics:   deps.Metrics,
		log:       deps.Log,
	}
	if r.log == nil {
		r.log = logrus.NewEntry(logrus.StandardLogger())
	}
	r.table = map[events.Name]Handler{
		events.PageReady:                 r.pageReady,
		events.PaginationPageChange:      r.paginationPageChange,
		events.UserCreationSuccessful:    r.customer(hits.ActionRegistration),
		events.UserPasswordUpdateSuccess: r.customer(hits.ActionPasswordUpdate),
		events.UserResetPasswordSuccess:  r.customer(hits.ActionPasswordReset),
		events.OrderSubmissionSuccess:    r.orderSubmissionSuccess,
		events.OrderCreate:               r.orderCreate,
	}
	return r
}

// Handlers returns a copy of the registration table.
func (r *Router) Handlers() map[events.Name]Handler {
	out := make(map[events.Name]Handler, len(r.table))
	for name, h := range r.table {
		out[name] = r.instrument(name, h)
	}
	return out
}

// Activate initializes the collector with the tracking id for the current
// mode and subscribes every handler. Outside preview mode a configured
// verification code is written to the page head first. When the collector
// cannot be initialized nothing is subscribed and the returned error wraps
// ErrCollectorUnavailable.
func (r *Router) Activate(ctx context.Context, sub Subscriber) error {
	trackingID := r.cfg.TrackingID()
	l := r.log.WithFields(logrus.Fields{
		"tracking_id":  trackingID,
		"preview_mode": r.cfg.PreviewMode,
	})

	if !r.cfg.PreviewMode && r.cfg.VerificationCode != "" && r.meta != nil {
		if err := r.meta.WriteMeta(VerificationMetaName, r.cfg.VerificationCode); err != nil {
			l.WithError(err).Warn("Failed to write site verification meta tag")
		}
	}

	if trackingID == "" {
		err := fmt.Errorf("%w: tracking id not configured", ErrCollectorUnavailable)
		l.WithError(err).Error("Analytics collector did not initialize")
		return err
	}
	if err := r.collector.Init(ctx, trackingID); err != nil {
		l.WithError(err).Error("Analytics collector did not initialize")
		return fmt.Errorf("%w: %w", ErrCollectorUnavailable, err)
	}

	handlers := r.Handlers()
	for _, name := range events.Names {
		if err := sub.Subscribe(name, handlers[name]); err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}
	l.Infof("Subscribed to %d storefront signals", len(events.Names))
	return nil
}

// Pending reports whether an order snapshot is waiting to be consumed.
func (r *Router) Pending() bool {
	return r.slot.state == slotPending
}

func (r *Router) instrument(name events.Name, h Handler) Handler {
	return func(ctx context.Context, env events.Envelope) {
		r.metrics.SignalReceived(string(name))
		h(ctx, env)
	}
}

func (r *Router) signalLog(env events.Envelope) *logrus.Entry {
	return r.log.WithFields(logrus.Fields{
		"signal":    env.Name,
		"signal_id": env.ID,
	})
}

// send hands one hit to the collector. Delivery is fire-and-forget: a
// failure is logged and counted, never returned.
func (r *Router) send(ctx context.Context, l *logrus.Entry, hit hits.Hit) {
	hitType := string(hit.HitType())
	if err := r.collector.Send(ctx, hit); err != nil {
		r.metrics.HitFailed(hitType)
		l.WithError(err).WithField("hit_type", hitType).Warn("Collector rejected hit")
		return
	}
	r.metrics.HitSent(hitType)
	l.WithField("hit_type", hitType).Debug("Hit sent")
}
