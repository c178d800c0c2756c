// Package snapshot freezes the live storefront cart into an immutable order
// snapshot at order-creation time, before the host clears the cart.
package snapshot

import (
	"strings"

	"Storefront-Analytics-Bridge/pkg/events"
)

// optionSeparator joins a line's selected option values.
const optionSeparator = ":"

// Cart is a read accessor for the host's live cart.
type Cart interface {
	CurrencyCode() string
	Total() float64
	SubTotal() float64
	Tax() float64
	Shipping() float64
	Items() []events.CartItemView
}

// LineItem is one product/SKU entry of a captured order.
type LineItem struct {
	ProductID string  `json:"productId" validate:"required"`
	SKUCode   string  `json:"skuCode" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	LineTotal float64 `json:"lineTotal" validate:"gte=0"`
	Options   string  `json:"options"` // Selected option values joined by ":", "" when none.
}

// OrderSnapshot is a point-in-time copy of the cart aggregate.
type OrderSnapshot struct {
	CurrencyCode string     `json:"currencyCode"`
	TotalPrice   float64    `json:"totalPrice"`
	Subtotal     float64    `json:"subtotal"`
	Tax          float64    `json:"tax"`
	Shipping     float64    `json:"shipping"`
	Items        []LineItem `json:"items"`
}

// Capture copies the cart's totals and lines. It must run synchronously in
// the order-creation handler, before anything else can clear the cart.
// The cart is only read.
func Capture(cart Cart) OrderSnapshot {
	lines := cart.Items()
	snap := OrderSnapshot{
		CurrencyCode: cart.CurrencyCode(),
		TotalPrice:   cart.Total(),
		Subtotal:     cart.SubTotal(),
		Tax:          cart.Tax(),
		Shipping:     cart.Shipping(),
		Items:        make([]LineItem, 0, len(lines)),
	}
	for _, line := range lines {
		snap.Items = append(snap.Items, captureLine(line))
	}
	return snap
}

func captureLine(line events.CartItemView) LineItem {
	item := LineItem{
		ProductID: line.ProductID,
		Name:      line.ProductData.DisplayName,
		Quantity:  line.Quantity,
		LineTotal: line.ItemTotal,
	}
	if len(line.ProductData.ChildSKUs) > 0 {
		item.SKUCode = line.ProductData.ChildSKUs[0].RepositoryID
	}

	values := make([]string, 0, len(line.SelectedOptions))
	for _, opt := range line.SelectedOptions {
		values = append(values, opt.OptionValue)
	}
	item.Options = strings.Join(values, optionSeparator)
	return item
}

// Empty reports whether the snapshot holds no line items.
func (s OrderSnapshot) Empty() bool {
	return len(s.Items) == 0
}
