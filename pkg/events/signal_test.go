package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnown(t *testing.T) {
	for _, n := range Names {
		assert.True(t, Known(n), n)
	}
	assert.False(t, Known("PRODUCT_VIEWED"))
	assert.False(t, Known(""))
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(OrderSubmissionSuccess, OrderSubmissionPayload{{ID: "o1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.EmittedAt.IsZero())
	assert.JSONEq(t, `[{"id":"o1"}]`, string(env.Payload))

	env, err = NewEnvelope(PaginationPageChange, nil)
	require.NoError(t, err)
	assert.Empty(t, env.Payload)
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"id":"s1","name":"ORDER_CREATE","context":{"location":{"path":"/#!/checkout","title":"Checkout"}}}`), PageReady)
	require.NoError(t, err)
	assert.Equal(t, "s1", env.ID)
	assert.Equal(t, OrderCreate, env.Name, "envelope name wins over fallback")
	require.NotNil(t, env.Context)
	assert.Equal(t, "/#!/checkout", env.Context.Location.Path)
	assert.Nil(t, env.Context.Cart)

	env, err = Decode([]byte(`{}`), PageReady)
	require.NoError(t, err)
	assert.Equal(t, PageReady, env.Name)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.EmittedAt.IsZero())

	_, err = Decode([]byte(`{}`), "")
	assert.Error(t, err)
	_, err = Decode([]byte(`[`), PageReady)
	assert.Error(t, err)
}

func TestOrderSubmissionPayloadOrderID(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantID string
		wantOK bool
	}{
		{name: "first element", raw: `[{"id":"o1"},{"id":"o2"}]`, wantID: "o1", wantOK: true},
		{name: "empty", raw: `[]`},
		{name: "missing id", raw: `[{}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p OrderSubmissionPayload
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &p))
			id, ok := p.OrderID()
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
