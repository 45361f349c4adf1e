package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		wantURL string
		wantKey string
	}{
		{"bare two label", "example.com", "https://www.example.com", "example.com"},
		{"uppercase", "EXAMPLE.com", "https://www.example.com", "example.com"},
		{"already www", "www.example.com", "https://www.example.com", "example.com"},
		{"https two label", "https://example.com", "https://www.example.com", "example.com"},
		{"http kept", "http://example.com/about", "http://www.example.com/about", "example.com"},
		{"subdomain untouched", "shop.example.com", "https://shop.example.com", "shop.example.com"},
		{"country tld untouched", "example.co.uk", "https://example.co.uk", "example.co.uk"},
		{"fragment dropped", "https://Example.com/#top", "https://www.example.com/", "example.com"},
		{"whitespace", "  example.com  ", "https://www.example.com", "example.com"},
		{"empty", "", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tc.input)
			require.Equal(t, tc.wantURL, got.URL)
			require.Equal(t, tc.wantKey, got.Key)
		})
	}
}

func TestNormalizeKeyStableAcrossVariants(t *testing.T) {
	t.Parallel()

	variants := []string{"EXAMPLE.com", "www.example.com", "https://example.com", "HTTPS://WWW.EXAMPLE.COM/path"}
	for _, v := range variants {
		require.Equal(t, "example.com", Key(v), v)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	first := Normalize("example.com")
	second := Normalize(first.URL)
	require.Equal(t, first, second)
}

func TestNormalizeMalformedNeverPanics(t *testing.T) {
	t.Parallel()

	got := Normalize("http://%zz")
	require.NotEmpty(t, got.URL)
}

func TestHostname(t *testing.T) {
	t.Parallel()

	require.Equal(t, "www.example.com", Hostname("https://WWW.Example.com/a?b=c"))
	require.Equal(t, "example.com", Hostname("example.com/path"))
}
