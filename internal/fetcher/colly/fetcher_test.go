package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

func TestFetcherFetchesPage(t *testing.T) {
	t.Parallel()

	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Smith Dental</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: time.Second})
	resp, err := f.Fetch(context.Background(), prospect.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "Smith Dental")
	require.False(t, resp.UsedHeadless)
	require.Equal(t, DefaultUserAgent, <-gotUA)
	require.Equal(t, "http", f.Name())
}

func TestFetcherFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>home</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), prospect.FetchRequest{URL: srv.URL + "/"})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/home", resp.URL)
}

func TestFetcherReturnsErrorOnNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), prospect.FetchRequest{URL: srv.URL})
	require.ErrorContains(t, err, "status 404")
}

func TestFetcherRejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), prospect.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, ErrNotHTML)
}

func TestFetcherHonorsContextCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(Config{Timeout: 5 * time.Second}).Fetch(ctx, prospect.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollectorSettings(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "audit-bot", RespectRobots: true, Timeout: time.Second})
	c := f.collector()
	require.Equal(t, "audit-bot", c.UserAgent)
	require.False(t, c.IgnoreRobotsTxt)

	c = New(Config{}).collector()
	require.True(t, c.IgnoreRobotsTxt)
	require.Equal(t, DefaultUserAgent, c.UserAgent)
}

func TestVisitCallbacks(t *testing.T) {
	t.Parallel()

	v := &visit{started: time.Unix(0, 0), extra: http.Header{"X-Trace": {"yes"}}}

	req := &colly.Request{Headers: &http.Header{}}
	v.onRequest(req)
	require.Equal(t, "yes", req.Headers.Get("X-Trace"))
	require.NotEmpty(t, req.Headers.Get("Accept-Language"))

	u, err := url.Parse("https://smithdental.com")
	require.NoError(t, err)
	v.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: u},
	})
	require.NoError(t, v.err)
	require.Equal(t, http.StatusCreated, v.resp.StatusCode)
	require.Equal(t, "body", string(v.resp.Body))
	require.Equal(t, "ok", v.resp.Headers.Get("X-Resp"))

	v.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("bad gateway"))
	require.EqualError(t, v.err, "status 502: bad gateway")
	v.onError(nil, errors.New("dial failed"))
	require.EqualError(t, v.err, "dial failed")
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	for ct, want := range map[string]bool{
		"":                         true,
		"text/html":                true,
		"TEXT/HTML; charset=UTF-8": true,
		"application/xhtml+xml":    true,
		"application/json":         false,
		"image/png":                false,
		"text/html;;broken":        true,
	} {
		require.Equal(t, want, isHTML(ct), ct)
	}
}
