package router

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/events"
	"Storefront-Analytics-Bridge/pkg/hits"
	"Storefront-Analytics-Bridge/pkg/sanitize"
	"Storefront-Analytics-Bridge/pkg/snapshot"
)

// pageReady records the pageview and, when the page parameters carry a
// search term, the search events.
func (r *Router) pageReady(ctx context.Context, env events.Envelope) {
	l := r.signalLog(env)
	r.recordPageHit(ctx, l)

	if len(env.Payload) == 0 {
		return
	}
	var payload events.PageReadyPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		r.metrics.HandlerError("malformed_payload")
		l.WithError(err).Warn("Ignoring malformed PAGE_READY payload")
		return
	}
	if payload.Parameters == nil || !sanitize.HasKey(*payload.Parameters, r.cfg.SearchTermKey) {
		return
	}

	term, err := sanitize.ExtractSearchTerm(*payload.Parameters, r.cfg.SearchTermKey, r.cfg.SearchSeparator)
	switch {
	case errors.Is(err, sanitize.ErrSearchTermNotFound):
		r.metrics.HandlerError("search_term_not_found")
		l.WithError(err).Debug("No search term on page")
		return
	case err != nil:
		r.metrics.HandlerError("malformed_search_term")
		l.WithError(err).Warn("Skipping search events")
		return
	}

	for _, ev := range hits.SearchEvents(term) {
		r.send(ctx, l, ev)
	}
}

func (r *Router) paginationPageChange(ctx context.Context, env events.Envelope) {
	r.recordPageHit(ctx, r.signalLog(env))
}

// recordPageHit sends a pageview for the host's current location.
func (r *Router) recordPageHit(ctx context.Context, l *logrus.Entry) {
	r.send(ctx, l, hits.NewPageview(r.location.Path(), r.location.Title()))
}

func (r *Router) customer(action hits.CustomerAction) Handler {
	return func(ctx context.Context, env events.Envelope) {
		r.send(ctx, r.signalLog(env), hits.CustomerEvent(action))
	}
}

// orderCreate freezes the live cart before the host clears it.
func (r *Router) orderCreate(_ context.Context, env events.Envelope) {
	l := r.signalLog(env)
	snap := snapshot.Capture(r.cart)
	if r.slot.store(snap) {
		l.Info("Discarding unconsumed order snapshot from an abandoned order")
	}
	r.metrics.SetPending(true)
	l.WithFields(logrus.Fields{
		"items":    len(snap.Items),
		"total":    snap.TotalPrice,
		"currency": snap.CurrencyCode,
	}).Info("Order snapshot captured")
}

// orderSubmissionSuccess sends the pending snapshot as line items plus a
// transaction and empties the slot.
func (r *Router) orderSubmissionSuccess(ctx context.Context, env events.Envelope) {
	l := r.signalLog(env)

	var payload events.OrderSubmissionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		r.metrics.HandlerError("malformed_payload")
		l.WithError(err).Warn("Ignoring malformed ORDER_SUBMISSION_SUCCESS payload")
		return
	}
	orderID, ok := payload.OrderID()
	if !ok {
		r.metrics.HandlerError("missing_order_id")
		l.Warn("Order submission carries no order id. Pending snapshot left in place")
		return
	}
	l = l.WithField("order_id", orderID)

	snap, ok := r.slot.take()
	if !ok {
		r.metrics.HandlerError("missing_pending_snapshot")
		l.WithError(ErrMissingPendingSnapshot).Warn("Skipping order hits")
		return
	}
	r.metrics.SetPending(false)

	sent := 0
	for i, item := range snap.Items {
		if err := snapshot.Validate(item); err != nil {
			r.metrics.HandlerError("malformed_cart_item")
			l.WithError(err).WithFields(logrus.Fields{
				"item_index": i,
				"product_id": item.ProductID,
			}).Warn("Dropping line item from order hits")
			continue
		}
		r.send(ctx, l, hits.NewLineItem(item))
		sent++
	}
	r.send(ctx, l, hits.NewTransaction(orderID, snap, r.affiliation()))

	l.WithFields(logrus.Fields{
		"line_items": sent,
		"dropped":    len(snap.Items) - sent,
	}).Info("Order sent to collector")
}

func (r *Router) affiliation() string {
	if r.site != nil {
		if name := r.site.SiteName(); name != "" {
			return name
		}
	}
	return r.cfg.SiteName
}
