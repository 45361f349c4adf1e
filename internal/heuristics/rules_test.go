package heuristics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractNAP(t *testing.T) {
	t.Parallel()

	rules := NewDefault()
	text := "Call us at (512) 555-0142 or visit 1200 Congress Avenue, Austin, TX 78701. Email hello@brightsmile.com"
	nap := rules.ExtractNAP(text)
	require.Equal(t, "(512) 555-0142", nap.Phone)
	require.Equal(t, "1200 Congress Avenue", nap.Address)
	require.Equal(t, "hello@brightsmile.com", nap.Email)

	empty := rules.ExtractNAP("We love teeth. Established 2019.")
	require.Empty(t, empty.Phone)
	require.Empty(t, empty.Address)
	require.Empty(t, empty.Email)
}

func TestHasLocationKeyword(t *testing.T) {
	t.Parallel()

	rules := NewDefault()
	require.True(t, rules.HasLocationKeyword("Proudly serving Austin, TX since 2001"))
	require.True(t, rules.HasLocationKeyword("Offices in San Antonio, TX"))
	require.False(t, rules.HasLocationKeyword("Proudly serving central texas"))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	rules := NewDefault("angel.")
	cases := []struct {
		host    string
		blocked bool
	}{
		{"www.yelp.com", true},
		{"m.facebook.com", true},
		{"yelp.co.uk", true},
		{"www.yellowpages.com", true},
		{"angel.co", true},
		{"www.porch.com", true},
		{"maps.apple.com", true},
		{"pineapple.apple.com", true},
		{"brightsmiledentistry.com", false},
		{"pineapplebakery.com", false},
		{"pineapple.com", false},
		{"frontporch.com", false},
		{"frontporchrealty.com", false},
		{"www.gamonster.net", false},
		{"heartvitals.org", false},
		{"roadmaps.net", false},
		{"", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.blocked, rules.IsBlocked(tc.host), tc.host)
	}
}

func TestIsHighAuthority(t *testing.T) {
	t.Parallel()

	rules := NewDefault()
	cases := []struct {
		host string
		want bool
	}{
		{"www.austintexas.gov", true},
		{"utexas.edu", true},
		{"ada.org", true},
		{"aspendental123.com", true},
		{"aspendentallocations.com", true},
		{"aspendental.com", false},
		{"premiersolutionsgroup.com", true},
		{"premierdental.com", false},
		{"www.brightsmiledentistry.com", false},
		{"globalpartners.co.uk", true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, rules.IsHighAuthority(tc.host), tc.host)
	}
}

func TestPrimaryLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "brightsmile", primaryLabel("www.brightsmile.co.uk"))
	require.Equal(t, "example", primaryLabel("shop.example.com"))
	require.Equal(t, "localhost", primaryLabel("localhost"))
}
