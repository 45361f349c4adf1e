package htmlsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

const resultsPage = `<html><body>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.brightsmiledentistry.com%2F&rut=abc">Bright Smile Dentistry</a></div>
<div class="result"><a class="result__a" href="https://austinfamilydental.com/">Austin Family Dental</a></div>
<div class="result"><a class="result__a" href="javascript:void(0)">broken</a></div>
<div class="other"><a href="https://ignored.example.com/">not a result</a></div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	t.Parallel()

	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	provider := New(Config{Endpoint: srv.URL + "/html/"}, nil)
	got, err := provider.Search(context.Background(), prospect.Query{Industry: "dentists", City: "Austin", State: "TX", Offset: 20})
	require.NoError(t, err)
	require.Equal(t, []prospect.Candidate{
		{Domain: "https://www.brightsmiledentistry.com/", DisplayName: "Bright Smile Dentistry"},
		{Domain: "https://austinfamilydental.com/", DisplayName: "Austin Family Dental"},
	}, got)
	require.Equal(t, "q=dentists+Austin+TX&s=20", <-queries)
}

func TestSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	provider := New(Config{Endpoint: srv.URL}, nil)
	_, err := provider.Search(context.Background(), prospect.Query{Industry: "dentists"})
	require.Error(t, err)
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://a.example.com/x", unwrap("https://duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example.com%2Fx"))
	require.Equal(t, "https://b.example.com/", unwrap("https://b.example.com/"))
	require.Empty(t, unwrap("javascript:void(0)"))
}
