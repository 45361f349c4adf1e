package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/heuristics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/search"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var clock2025 = fixedClock{now: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)}

// pagedProvider returns size distinct candidates per offset until pages run out.
type pagedProvider struct {
	size    int
	pages   int
	offsets []int
}

func (p *pagedProvider) Name() string { return "paged" }

func (p *pagedProvider) Search(_ context.Context, q prospect.Query) ([]prospect.Candidate, error) {
	p.offsets = append(p.offsets, q.Offset)
	if p.pages > 0 && len(p.offsets) > p.pages {
		return nil, nil
	}
	out := make([]prospect.Candidate, 0, p.size)
	for i := 0; i < p.size; i++ {
		out = append(out, prospect.Candidate{Domain: fmt.Sprintf("business%03d.com", q.Offset+i)})
	}
	return out, nil
}

type staticProvider struct {
	candidates []prospect.Candidate
	calls      int
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) Search(context.Context, prospect.Query) ([]prospect.Candidate, error) {
	p.calls++
	return p.candidates, nil
}

type funcLoader struct {
	mu    sync.Mutex
	calls int
	fn    func(url string) (prospect.ScrapedPage, error)
}

func (l *funcLoader) Load(_ context.Context, url string) (prospect.ScrapedPage, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.fn(url)
}

type recordingUsage struct{ events []prospect.UsageEvent }

func (r *recordingUsage) LogUsage(_ context.Context, e prospect.UsageEvent) error {
	r.events = append(r.events, e)
	return nil
}

type recordingPublisher struct{ topics []string }

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ any) (string, error) {
	r.topics = append(r.topics, topic)
	return "msg-1", nil
}

// lowPage scores 100 overall, which is outside the sweet spot.
func lowPage() prospect.ScrapedPage {
	body := strings.Repeat("family dentistry services ", 200) +
		"Call (512) 555-0142, 1200 Congress Avenue, Austin, TX. Updated 2025."
	return prospect.ScrapedPage{
		Title:             "Bright Smile Dentistry | Family Dentist in Austin",
		MetaDescription:   strings.Repeat("m", 140),
		HasStructuredData: true,
		HasViewportTag:    true,
		Headings:          prospect.HeadingStats{H1Count: 1, H1Text: "Family Dentistry in Austin", H2Count: 3},
		InternalLinkCount: 12,
		BodyText:          body,
		PageText:          body,
		BodyWordCount:     len(strings.Fields(body)),
		OutboundLinkHrefs: []string{"/blog/"},
	}
}

// mediumPage scores 80 overall.
func mediumPage() prospect.ScrapedPage {
	page := lowPage()
	page.HasStructuredData = false
	page.OutboundLinkHrefs = nil
	return page
}

// highPage is the dentist scenario page: no structured data, no blog, a
// 250-word body with a phone and address and a mention of last year.
func highPage() prospect.ScrapedPage {
	body := strings.Repeat("word ", 236) +
		"Call (512) 555-0142 or stop by 1200 Congress Avenue. Serving families since 2024."
	return prospect.ScrapedPage{
		Title:             "Bright Smile Dentistry - Gentle Family Dental Care",
		MetaDescription:   strings.Repeat("d", 130),
		HasViewportTag:    true,
		Images:            prospect.ImageStats{Total: 4, WithAlt: 1},
		Headings:          prospect.HeadingStats{H1Count: 1, H1Text: "Gentle Family Dentistry", H2Count: 2},
		InternalLinkCount: 6,
		BodyText:          body,
		PageText:          body,
		BodyWordCount:     len(strings.Fields(body)),
		OutboundLinkHrefs: []string{"/services", "/contact"},
	}
}

func newController(t *testing.T, provider prospect.SearchProvider, loader prospect.PageLoader, deps Deps) *Controller {
	t.Helper()
	deps.Search = provider
	deps.Loader = loader
	deps.Clock = clock2025
	c, err := New(Config{MaxAttempts: 3, PageSize: 20, CostPerLead: 0.05}, deps)
	require.NoError(t, err)
	return c
}

func TestDiscoverTerminatesAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	provider := &pagedProvider{size: 20}
	loader := &funcLoader{fn: func(url string) (prospect.ScrapedPage, error) {
		if strings.HasSuffix(url, "0.com") {
			return mediumPage(), nil
		}
		return lowPage(), nil
	}}
	usage := &recordingUsage{}
	c := newController(t, provider, loader, Deps{Usage: usage})

	leads, err := c.Discover(context.Background(), Request{UserID: "u1", Industry: "dentists", City: "Austin", State: "TX", Target: 15})
	require.NoError(t, err)
	require.Equal(t, []int{0, 20, 40}, provider.offsets)
	require.Equal(t, 60, loader.calls)
	require.Len(t, leads, 15)
	for i, lead := range leads {
		if i < 6 {
			require.Equal(t, prospect.RatingMedium, lead.Rating, lead.Candidate.Domain)
		} else {
			require.Equal(t, prospect.RatingLow, lead.Rating, lead.Candidate.Domain)
		}
	}
	require.Equal(t, "business000.com", leads[0].Candidate.Domain)
	require.Equal(t, "business010.com", leads[1].Candidate.Domain)
	require.Len(t, usage.events, 1)
	require.Equal(t, prospect.OperationDiscovery, usage.events[0].OperationType)
	require.InDelta(t, 0.75, usage.events[0].CostUSD, 1e-9)
}

func TestDiscoverStopsWhenTargetReached(t *testing.T) {
	t.Parallel()

	provider := &pagedProvider{size: 20}
	loader := &funcLoader{fn: func(string) (prospect.ScrapedPage, error) { return highPage(), nil }}
	publisher := &recordingPublisher{}
	c := newController(t, provider, loader, Deps{Publisher: publisher})

	leads, err := c.Discover(context.Background(), Request{Industry: "dentists", City: "Austin", Target: 2})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	require.Equal(t, 2, loader.calls)
	require.Len(t, provider.offsets, 1)
	require.Equal(t, []string{TopicCompleted}, publisher.topics)
	for _, lead := range leads {
		require.Equal(t, prospect.RatingHigh, lead.Rating)
	}
}

func TestDiscoverNoLeads(t *testing.T) {
	t.Parallel()

	provider := &staticProvider{}
	loader := &funcLoader{fn: func(string) (prospect.ScrapedPage, error) { return lowPage(), nil }}
	usage := &recordingUsage{}
	c := newController(t, provider, loader, Deps{Usage: usage})

	_, err := c.Discover(context.Background(), Request{Industry: "dentists", City: "Nowhere"})
	require.ErrorIs(t, err, prospect.ErrNoLeads)
	require.Equal(t, 1, provider.calls)
	require.Empty(t, usage.events)
}

func TestStepSkipsFailuresAndSeenDomains(t *testing.T) {
	t.Parallel()

	provider := &staticProvider{candidates: []prospect.Candidate{
		{Domain: "goodsmiles.com"},
		{Domain: "www.GoodSmiles.com"},
		{Domain: "brokensite.com"},
	}}
	loader := &funcLoader{fn: func(url string) (prospect.ScrapedPage, error) {
		if strings.Contains(url, "brokensite") {
			return prospect.ScrapedPage{}, prospect.ErrNoContent
		}
		return highPage(), nil
	}}
	c := newController(t, provider, loader, Deps{})
	req := Request{Industry: "dentists", City: "Austin", Target: 5}
	st := NewState()

	done, err := c.Step(context.Background(), req, st)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, 1, st.Attempt)
	require.Equal(t, 20, st.Offset)
	require.Len(t, st.AllLeads, 1)
	require.Len(t, st.Qualified, 1)
	require.Equal(t, 2, loader.calls)

	done, err = c.Step(context.Background(), req, st)
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, st.AllLeads, 1)
	require.Equal(t, 2, loader.calls)

	done, err = c.Step(context.Background(), req, st)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 3, st.Attempt)

	done, err = c.Step(context.Background(), req, st)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 3, provider.calls)
}

func TestFinalizePrefersQualified(t *testing.T) {
	t.Parallel()

	st := NewState()
	for i := 0; i < 3; i++ {
		lead := prospect.Lead{Candidate: prospect.Candidate{Domain: fmt.Sprintf("q%d.com", i)}, Rating: prospect.RatingHigh}
		st.AllLeads = append(st.AllLeads, lead)
		st.Qualified = append(st.Qualified, lead)
	}
	leads, err := Finalize(st, 2)
	require.NoError(t, err)
	require.Equal(t, "q0.com", leads[0].Candidate.Domain)
	require.Len(t, leads, 2)
}

func TestNewClampsPageSize(t *testing.T) {
	t.Parallel()

	c, err := New(Config{PageSize: 50}, Deps{Search: &staticProvider{}, Loader: &funcLoader{}, Clock: clock2025})
	require.NoError(t, err)
	require.Equal(t, MaxPageSize, c.cfg.PageSize)
	require.Equal(t, DefaultMaxAttempts, c.cfg.MaxAttempts)

	_, err = New(Config{}, Deps{})
	require.Error(t, err)
}

func TestDentistScenario(t *testing.T) {
	t.Parallel()

	raw := &staticProvider{candidates: []prospect.Candidate{
		{Domain: "https://www.yelp.com/search?find_desc=dentists", DisplayName: "Yelp"},
		{Domain: "https://brightsmiledentistry.com/", DisplayName: "Bright Smile Dentistry"},
	}}
	chain := search.NewChain(heuristics.NewDefault(), nil, raw)
	var loaded []string
	loader := &funcLoader{fn: func(url string) (prospect.ScrapedPage, error) {
		loaded = append(loaded, url)
		return highPage(), nil
	}}
	c := newController(t, chain, loader, Deps{})

	leads, err := c.Discover(context.Background(), Request{Industry: "dentists", City: "Austin", State: "TX", Target: 15})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, []string{"https://www.brightsmiledentistry.com"}, loaded)

	lead := leads[0]
	require.Equal(t, "brightsmiledentistry.com", lead.Candidate.Domain)
	require.Equal(t, "Austin", lead.Candidate.City)
	require.GreaterOrEqual(t, lead.Scores.TechnicalSEO, 25)
	require.LessOrEqual(t, lead.Scores.TechnicalSEO, 30)
	require.Equal(t, 5, lead.Scores.ContentMarketing)
	require.NotEmpty(t, lead.NAP.Phone)
	require.NotEmpty(t, lead.NAP.Address)
	require.False(t, lead.HasBlog)
	require.Equal(t, prospect.OpportunityNoContentStrategy, lead.OpportunityType)
	require.Equal(t, prospect.RatingHigh, lead.Rating)
}
