package factcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

func TestCheckPostsTextAndDecodes(t *testing.T) {
	t.Parallel()

	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"overall_score":82,"claims":[
			{"claim":"Serving Austin since 1998","verdict":"supported","confidence":0.9}
		]}`))
	}))
	defer srv.Close()

	client, err := New(Config{Endpoint: srv.URL, APIKey: "key"}, srv.Client())
	require.NoError(t, err)

	result, err := client.Check(context.Background(), "  Serving Austin since 1998.  ")
	require.NoError(t, err)
	require.Equal(t, "Serving Austin since 1998.", got.Text)
	require.Equal(t, 82, result.OverallScore)
	require.Len(t, result.Claims, 1)
	require.Equal(t, "supported", result.Claims[0].Verdict)
}

func TestCheckTruncatesAndClamps(t *testing.T) {
	t.Parallel()

	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"overall_score":140}`))
	}))
	defer srv.Close()

	client, err := New(Config{Endpoint: srv.URL, MaxChars: 10}, srv.Client())
	require.NoError(t, err)

	result, err := client.Check(context.Background(), strings.Repeat("é", 25))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("é", 10), got.Text)
	require.Equal(t, 100, result.OverallScore)
}

func TestCheckErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(Config{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.Check(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyText)

	_, err = client.Check(context.Background(), "We are the best dentist in Texas.")
	require.ErrorContains(t, err, "unexpected status 503")
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	_, err := Noop{}.Check(context.Background(), "text")
	require.ErrorIs(t, err, prospect.ErrFactCheckDisabled)
}
