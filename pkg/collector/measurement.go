// Package collector delivers analytics hits to the external collector.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/hits"
)

const (
	protocolVersion = "1"
	defaultTimeout  = 5 * time.Second
)

// ErrNotInitialized is returned by Send before a successful Init.
var ErrNotInitialized = errors.New("collector not initialized")

var trackingIDPattern = regexp.MustCompile(`^(UA|YT|MO)-\d+-\d+$`)

// MeasurementOption configures a Measurement sink.
type MeasurementOption func(*Measurement)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) MeasurementOption {
	return func(m *Measurement) { m.client = c }
}

// WithTimeout sets the per-request timeout. Default: 5s.
func WithTimeout(d time.Duration) MeasurementOption {
	return func(m *Measurement) { m.client.Timeout = d }
}

// WithClientID fixes the anonymous client id. Default: a random UUID.
func WithClientID(id string) MeasurementOption {
	return func(m *Measurement) { m.clientID = id }
}

// WithMeasurementLogger sets the logger.
func WithMeasurementLogger(l *logrus.Entry) MeasurementOption {
	return func(m *Measurement) { m.log = l }
}

// Measurement posts hits to a Measurement Protocol endpoint as form-encoded
// payloads, one request per hit. Line items are staged and attached to the
// next transaction, as the collector's enhanced e-commerce model expects.
// Failed requests are not retried.
type Measurement struct {
	endpoint   string
	client     *http.Client
	clientID   string
	log        *logrus.Entry
	mu         sync.Mutex
	trackingID string
	staged     []hits.LineItem
}

// NewMeasurement creates a sink targeting endpoint, e.g.
// https://www.google-analytics.com/collect.
func NewMeasurement(endpoint string, opts ...MeasurementOption) *Measurement {
	m := &Measurement{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		clientID: uuid.NewString(),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init checks the tracking id and probes the endpoint. A transport error or
// a 5xx answer means the collector is unavailable.
func (m *Measurement) Init(ctx context.Context, trackingID string) error {
	if !trackingIDPattern.MatchString(trackingID) {
		return fmt.Errorf("measurement: invalid tracking id %q", trackingID)
	}
	if _, err := url.ParseRequestURI(m.endpoint); err != nil {
		return fmt.Errorf("measurement: endpoint: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint, nil)
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("measurement: probe: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("measurement: probe: HTTP %d", resp.StatusCode)
	}

	m.mu.Lock()
	m.trackingID = trackingID
	m.mu.Unlock()
	m.log.WithField("client_id", m.clientID).Info("Measurement Protocol collector initialized")
	return nil
}

// Send delivers one hit. Line items are staged and sent with the next
// transaction.
func (m *Measurement) Send(ctx context.Context, hit hits.Hit) error {
	m.mu.Lock()
	if m.trackingID == "" {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if item, ok := hit.(hits.LineItem); ok {
		m.staged = append(m.staged, item)
		m.mu.Unlock()
		return nil
	}
	var products []hits.LineItem
	if _, ok := hit.(hits.Transaction); ok {
		products, m.staged = m.staged, nil
	}
	form, err := encode(m.trackingID, m.clientID, hit, products)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.post(ctx, form)
}

// Close reports line items that never saw a transaction.
func (m *Measurement) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.staged); n > 0 {
		m.log.Warnf("Dropping %d staged line items without a transaction", n)
		m.staged = nil
	}
	return nil
}

func (m *Measurement) post(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("measurement: HTTP %d", resp.StatusCode)
	}
	return nil
}

// encode maps a hit to Measurement Protocol parameters.
func encode(trackingID, clientID string, hit hits.Hit, products []hits.LineItem) (url.Values, error) {
	v := url.Values{}
	v.Set("v", protocolVersion)
	v.Set("tid", trackingID)
	v.Set("cid", clientID)

	switch h := hit.(type) {
	case hits.Pageview:
		v.Set("t", "pageview")
		v.Set("dp", h.Page)
		v.Set("dt", h.Title)
	case hits.Event:
		v.Set("t", "event")
		v.Set("ec", h.Category)
		v.Set("ea", h.Action)
		v.Set("el", h.Label)
		if h.Value != nil {
			v.Set("ev", strconv.Itoa(*h.Value))
		}
	case hits.Transaction:
		v.Set("t", "event")
		v.Set("ec", "Ecommerce")
		v.Set("ea", "Purchase")
		v.Set("ni", "1")
		v.Set("pa", "purchase")
		v.Set("ti", h.ID)
		v.Set("ta", h.Affiliation)
		v.Set("tr", formatAmount(h.Revenue))
		v.Set("tt", formatAmount(h.Tax))
		v.Set("ts", formatAmount(h.Shipping))
		v.Set("tcc", h.Coupon)
		if h.CurrencyCode != "" {
			v.Set("cu", h.CurrencyCode)
		}
		for i, p := range products {
			prefix := "pr" + strconv.Itoa(i+1)
			v.Set(prefix+"id", p.ID)
			v.Set(prefix+"nm", p.Name)
			v.Set(prefix+"ca", p.Category)
			v.Set(prefix+"va", p.Variant)
			v.Set(prefix+"pr", formatAmount(p.Price))
			v.Set(prefix+"qt", strconv.Itoa(p.Quantity))
		}
	default:
		return nil, fmt.Errorf("measurement: unsupported hit type %T", hit)
	}
	return v, nil
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
