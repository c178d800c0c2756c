// Package storefront mirrors the host page state that travels with each
// signal, and collects the document head annotations the bridge writes.
package storefront

import (
	"sync"

	"Storefront-Analytics-Bridge/pkg/events"
)

// Session is the bridge's view of the host page: current location, live
// cart and site. Observe updates it from each signal's context before the
// signal's handlers run. It satisfies snapshot.Cart, router.Location and
// router.Site.
type Session struct {
	mu       sync.RWMutex
	location events.Location
	cart     events.CartView
	site     events.Site
}

// NewSession returns an empty session on the home route.
func NewSession() *Session {
	return &Session{}
}

// Observe applies the parts of env's host context that are present. Parts
// left out keep their previous value.
func (s *Session) Observe(env events.Envelope) {
	if env.Context == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if env.Context.Location != nil {
		s.location = *env.Context.Location
	}
	if env.Context.Cart != nil {
		s.cart = copyCart(*env.Context.Cart)
	}
	if env.Context.Site != nil {
		s.site = *env.Context.Site
	}
}

func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location.Path
}

func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location.Title
}

func (s *Session) SiteName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.site.Name
}

func (s *Session) CurrencyCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.CurrencyCode
}

func (s *Session) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Total
}

func (s *Session) SubTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.SubTotal
}

func (s *Session) Tax() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Tax
}

func (s *Session) Shipping() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Shipping
}

// Items returns a copy of the cart lines.
func (s *Session) Items() []events.CartItemView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCart(s.cart).Items
}

func copyCart(c events.CartView) events.CartView {
	out := c
	out.Items = make([]events.CartItemView, len(c.Items))
	for i, item := range c.Items {
		item.ProductData.ChildSKUs = append([]events.ChildSKU(nil), item.ProductData.ChildSKUs...)
		item.SelectedOptions = append([]events.SelectedOption(nil), item.SelectedOptions...)
		out.Items[i] = item
	}
	return out
}
