package hits

import (
	"fmt"

	"Storefront-Analytics-Bridge/pkg/sanitize"
	"Storefront-Analytics-Bridge/pkg/snapshot"
)

// HomeRoute replaces an empty or root path on pageviews.
const HomeRoute = "/#!/home"

const (
	categorySearch   = "Search"
	categoryCustomer = "Customer"

	actionFullString = "Full String"
	actionWord       = "Word"
)

// CustomerAction is one of the fixed account lifecycle actions.
type CustomerAction string

const (
	ActionRegistration   CustomerAction = "Registration"
	ActionPasswordUpdate CustomerAction = "Password Update"
	ActionPasswordReset  CustomerAction = "Password Reset"
)

// NewPageview builds a pageview hit, normalizing "" and "/" to HomeRoute.
func NewPageview(path, title string) Pageview {
	if path == "" || path == "/" {
		path = HomeRoute
	}
	return Pageview{Page: path, Title: title}
}

// SearchEvents returns one "Full String" event for the whole term followed
// by one "Word" event per token, in token order.
func SearchEvents(term string) []Event {
	words := sanitize.Tokenize(term)
	out := make([]Event, 0, len(words)+1)
	out = append(out, Event{Category: categorySearch, Action: actionFullString, Label: term})
	for _, w := range words {
		out = append(out, Event{Category: categorySearch, Action: actionWord, Label: w})
	}
	return out
}

// NewLineItem formats a captured line for the collector. Quantity must be
// at least one; callers validate the item first.
func NewLineItem(item snapshot.LineItem) LineItem {
	var id string
	if item.Options != "" {
		id = fmt.Sprintf("%s - %s (%s)", item.Name, item.Options, item.SKUCode)
	} else {
		id = fmt.Sprintf("%s (%s)", item.Name, item.SKUCode)
	}
	return LineItem{
		ID:       id,
		Name:     fmt.Sprintf("%s (%s)", item.Name, item.ProductID),
		Category: "",
		Variant:  item.Options,
		Price:    item.LineTotal / float64(item.Quantity),
		Quantity: item.Quantity,
	}
}

// NewTransaction builds the purchase action. Totals are copied verbatim;
// there is no coupon support so Coupon is always empty.
func NewTransaction(orderID string, snap snapshot.OrderSnapshot, affiliation string) Transaction {
	return Transaction{
		ID:           orderID,
		Affiliation:  affiliation,
		Revenue:      snap.TotalPrice,
		Tax:          snap.Tax,
		Shipping:     snap.Shipping,
		Coupon:       "",
		CurrencyCode: snap.CurrencyCode,
	}
}

// CustomerEvent builds the event for an account lifecycle action.
func CustomerEvent(action CustomerAction) Event {
	return Event{Category: categoryCustomer, Action: string(action), Label: ""}
}
