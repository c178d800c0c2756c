package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront-Analytics-Bridge/pkg/events"
)

type fakeCart struct {
	view events.CartView
}

func (c *fakeCart) CurrencyCode() string         { return c.view.CurrencyCode }
func (c *fakeCart) Total() float64               { return c.view.Total }
func (c *fakeCart) SubTotal() float64            { return c.view.SubTotal }
func (c *fakeCart) Tax() float64                 { return c.view.Tax }
func (c *fakeCart) Shipping() float64            { return c.view.Shipping }
func (c *fakeCart) Items() []events.CartItemView { return c.view.Items }

func testCart() *fakeCart {
	return &fakeCart{view: events.CartView{
		CurrencyCode: "USD",
		Total:        57.35,
		SubTotal:     50,
		Tax:          4.35,
		Shipping:     3,
		Items: []events.CartItemView{
			{
				ProductID: "P1",
				ProductData: events.ProductData{
					DisplayName: "Shirt",
					ChildSKUs:   []events.ChildSKU{{RepositoryID: "S1"}, {RepositoryID: "S2"}},
				},
				Quantity:  2,
				ItemTotal: 40,
				SelectedOptions: []events.SelectedOption{
					{OptionName: "color", OptionValue: "Red"},
					{OptionName: "size", OptionValue: "L"},
				},
			},
			{
				ProductID: "P2",
				ProductData: events.ProductData{
					DisplayName: "Socks",
					ChildSKUs:   []events.ChildSKU{{RepositoryID: "S9"}},
				},
				Quantity:  1,
				ItemTotal: 10,
			},
		},
	}}
}

func TestCapture(t *testing.T) {
	snap := Capture(testCart())

	assert.Equal(t, "USD", snap.CurrencyCode)
	assert.Equal(t, 57.35, snap.TotalPrice)
	assert.Equal(t, 50.0, snap.Subtotal)
	assert.Equal(t, 4.35, snap.Tax)
	assert.Equal(t, 3.0, snap.Shipping)
	require.Len(t, snap.Items, 2)

	assert.Equal(t, LineItem{
		ProductID: "P1",
		SKUCode:   "S1",
		Name:      "Shirt",
		Quantity:  2,
		LineTotal: 40,
		Options:   "Red:L",
	}, snap.Items[0])
	assert.Equal(t, "", snap.Items[1].Options)
	assert.Equal(t, "S9", snap.Items[1].SKUCode)
}

func TestCaptureSurvivesCartClearing(t *testing.T) {
	cart := testCart()
	snap := Capture(cart)

	cart.view.Items[0].ProductData.DisplayName = "Changed"
	cart.view = events.CartView{}

	assert.Equal(t, "Shirt", snap.Items[0].Name)
	assert.Equal(t, 57.35, snap.TotalPrice)
}

func TestCaptureDoesNotMutateCart(t *testing.T) {
	cart := testCart()
	before := len(cart.view.Items[0].SelectedOptions)
	Capture(cart)
	assert.Len(t, cart.view.Items[0].SelectedOptions, before)
	assert.Equal(t, "S1", cart.view.Items[0].ProductData.ChildSKUs[0].RepositoryID)
}

func TestCaptureEmptyCart(t *testing.T) {
	snap := Capture(&fakeCart{})
	assert.True(t, snap.Empty())
	assert.NotNil(t, snap.Items)
}

func TestCaptureMissingChildSKU(t *testing.T) {
	cart := &fakeCart{view: events.CartView{Items: []events.CartItemView{
		{ProductID: "P3", ProductData: events.ProductData{DisplayName: "Hat"}, Quantity: 1, ItemTotal: 5},
	}}}
	snap := Capture(cart)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "", snap.Items[0].SKUCode)
}

func TestValidate(t *testing.T) {
	good := LineItem{ProductID: "P1", SKUCode: "S1", Name: "Shirt", Quantity: 1, LineTotal: 20}
	assert.NoError(t, Validate(good))

	bad := good
	bad.SKUCode = ""
	bad.Quantity = 0
	err := Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedCartItem)

	var mie *MalformedItemError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, "P1", mie.ProductID)
	assert.ElementsMatch(t, []string{"SKUCode", "Quantity"}, mie.Fields)
	assert.Contains(t, err.Error(), "SKUCode")
}
