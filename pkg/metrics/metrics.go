// Package metrics exposes the bridge's prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the bridge's instruments. A nil *Recorder is valid and
// records nothing, which keeps handler tests free of registry setup.
type Recorder struct {
	registry        *prometheus.Registry
	signalsReceived *prometheus.CounterVec
	hitsSent        *prometheus.CounterVec
	hitFailures     *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	pendingSnapshot prometheus.Gauge
}

// New creates a Recorder on a private registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		signalsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_signals_received_total",
			Help: "Lifecycle signals dispatched to a handler, by signal name.",
		}, []string{"signal"}),
		hitsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_hits_sent_total",
			Help: "Hits handed to the collector sink, by hit type.",
		}, []string{"type"}),
		hitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_hit_failures_total",
			Help: "Hits the collector sink rejected, by hit type.",
		}, []string{"type"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_handler_errors_total",
			Help: "Recoverable handler errors, by kind.",
		}, []string{"kind"}),
		pendingSnapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_pending_snapshot",
			Help: "1 while an order snapshot waits for its submission signal.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.signalsReceived,
		r.hitsSent,
		r.hitFailures,
		r.handlerErrors,
		r.pendingSnapshot,
	)
	return r
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) SignalReceived(signal string) {
	if r == nil {
		return
	}
	r.signalsReceived.WithLabelValues(signal).Inc()
}

func (r *Recorder) HitSent(hitType string) {
	if r == nil {
		return
	}
	r.hitsSent.WithLabelValues(hitType).Inc()
}

func (r *Recorder) HitFailed(hitType string) {
	if r == nil {
		return
	}
	r.hitFailures.WithLabelValues(hitType).Inc()
}

func (r *Recorder) HandlerError(kind string) {
	if r == nil {
		return
	}
	r.handlerErrors.WithLabelValues(kind).Inc()
}

// SetPending records whether the pending snapshot slot is occupied.
func (r *Recorder) SetPending(pending bool) {
	if r == nil {
		return
	}
	if pending {
		r.pendingSnapshot.Set(1)
		return
	}
	r.pendingSnapshot.Set(0)
}
