package events

// OrderRef identifies an order confirmed by the storefront.
// Ensure all fields are exported (start with uppercase) for JSON serialization.
type OrderRef struct {
	ID string `json:"id"` // Unique identifier for the submitted order.
}

// OrderSubmissionPayload is the payload of ORDER_SUBMISSION_SUCCESS.
// The storefront sends a sequence; only the first element's id is meaningful.
type OrderSubmissionPayload []OrderRef

// OrderID returns the id of the first order reference, or false when the
// payload carries none.
func (p OrderSubmissionPayload) OrderID() (string, bool) {
	if len(p) == 0 || p[0].ID == "" {
		return "", false
	}
	return p[0].ID, true
}

// CartView is the host's live cart as attached to a signal's context.
// It mirrors the storefront cart model and is cleared by the host once an
// order has been created.
type CartView struct {
	CurrencyCode string         `json:"currencyCode"` // ISO currency code of every amount in the cart.
	Total        float64        `json:"total"`        // Grand total including tax and shipping.
	SubTotal     float64        `json:"subTotal"`     // Sum of line totals.
	Tax          float64        `json:"tax"`          // Tax amount.
	Shipping     float64        `json:"shipping"`     // Shipping amount.
	Items        []CartItemView `json:"items"`        // Line items in cart order.
}

// CartItemView is one line of the live cart.
type CartItemView struct {
	ProductID       string           `json:"productId"`
	ProductData     ProductData      `json:"productData"`
	Quantity        int              `json:"quantity"`
	ItemTotal       float64          `json:"itemTotal"` // Line total (unit price times quantity, after discounts).
	SelectedOptions []SelectedOption `json:"selectedOptions"`
}

// ProductData is the catalog view of the product behind a cart line.
type ProductData struct {
	DisplayName string     `json:"displayName"`
	ChildSKUs   []ChildSKU `json:"childSKUs"`
}

// ChildSKU is a purchasable variant of a product.
type ChildSKU struct {
	RepositoryID string `json:"repositoryId"`
}

// SelectedOption is a variant option the shopper picked, e.g. colour or size.
type SelectedOption struct {
	OptionName  string `json:"optionName,omitempty"`
	OptionValue string `json:"optionValue"`
}
