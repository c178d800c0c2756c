package sanitize

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doubleEncode(s string) string {
	return url.PathEscape(url.PathEscape(s))
}

func TestExtractSearchTermRoundTrip(t *testing.T) {
	raw := "q=" + doubleEncode("prefix~red shoes"+"X")

	term, err := ExtractSearchTerm(raw, "q", "~")
	require.NoError(t, err)
	assert.Equal(t, "red shoes", term)
}

func TestExtractSearchTerm(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		key       string
		separator string
		want      string
		wantErr   error
	}{
		{
			name:      "storefront default separator",
			raw:       "Nr=AND(sku.active:1)&Ntt=" + doubleEncode("product.keywords|Blue Jeans*"),
			key:       "Ntt",
			separator: "|",
			want:      "blue jeans",
		},
		{
			name:      "last occurrence wins",
			raw:       "q=" + doubleEncode("p~first!") + "&q=" + doubleEncode("p~second!"),
			key:       "q",
			separator: "~",
			want:      "second",
		},
		{
			name:      "plus is not a space",
			raw:       "q=" + doubleEncode("p~a+b!"),
			key:       "q",
			separator: "~",
			want:      "a+b",
		},
		{
			name:      "multibyte sentinel",
			raw:       "q=" + doubleEncode("p~café€"),
			key:       "q",
			separator: "~",
			want:      "café",
		},
		{
			name:      "missing key",
			raw:       "page=2&sort=asc",
			key:       "q",
			separator: "~",
			wantErr:   ErrSearchTermNotFound,
		},
		{
			name:      "key without value",
			raw:       "q",
			key:       "q",
			separator: "~",
			wantErr:   ErrSearchTermNotFound,
		},
		{
			name:      "no separator",
			raw:       "q=" + doubleEncode("shoes"),
			key:       "q",
			separator: "~",
			wantErr:   ErrMalformedSearchTerm,
		},
		{
			name:      "bad escape",
			raw:       "q=%ZZ",
			key:       "q",
			separator: "~",
			wantErr:   ErrMalformedSearchTerm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSearchTerm(tt.raw, tt.key, tt.separator)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasKey(t *testing.T) {
	assert.True(t, HasKey("a=1&Ntt=x", "Ntt"))
	assert.False(t, HasKey("a=1&Nttx", "Ntt"))
	assert.False(t, HasKey("", "Ntt"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"red", "shoes"}, Tokenize("red shoes"))
	assert.Equal(t, []string{"red", "", "shoes"}, Tokenize("red  shoes"))
	assert.Equal(t, []string{""}, Tokenize(""))
}
