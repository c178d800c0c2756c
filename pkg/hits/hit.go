// Package hits defines the analytics collector's hit shapes and the
// formatting rules that build them from storefront data.
package hits

// Type discriminates the hit kinds.
type Type string

const (
	TypePageview    Type = "pageview"
	TypeEvent       Type = "event"
	TypeLineItem    Type = "item"
	TypeTransaction Type = "transaction"
)

// Hit is one analytics record. Values are immutable once built.
type Hit interface {
	HitType() Type
}

// Pageview records a page view.
type Pageview struct {
	Page  string `json:"page"`
	Title string `json:"title"`
}

// Event records a generic interaction. Value is optional.
type Event struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Label    string `json:"label"`
	Value    *int   `json:"value,omitempty"`
}

// LineItem is an e-commerce product entry attached to the next transaction.
type LineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Variant  string  `json:"variant"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Transaction is the e-commerce purchase action.
type Transaction struct {
	ID           string  `json:"id"`
	Affiliation  string  `json:"affiliation"`
	Revenue      float64 `json:"revenue"`
	Tax          float64 `json:"tax"`
	Shipping     float64 `json:"shipping"`
	Coupon       string  `json:"coupon"`
	CurrencyCode string  `json:"currencyCode,omitempty"`
}

func (Pageview) HitType() Type    { return TypePageview }
func (Event) HitType() Type       { return TypeEvent }
func (LineItem) HitType() Type    { return TypeLineItem }
func (Transaction) HitType() Type { return TypeTransaction }
