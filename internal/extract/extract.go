// Package extract parses fetched HTML into the structure consumed by the SEO
// scorer and isolates the main readable content of a page.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/urlnorm"
)

const (
	// MaxBodyChars caps the extracted body text.
	MaxBodyChars = 50000
	// RegionFloor is the minimum text length for a candidate main-content region.
	RegionFloor = 150
)

// mainSelectors are tried in rank order; the region with the most text wins.
var mainSelectors = []string{
	"main",
	"article",
	"[role='main']",
	"#content",
	".content",
	"#main",
	".main-content",
	".post-content",
	".entry-content",
}

var noiseSelectors = "script, style, noscript, template, svg, iframe"

// Parse builds a ScrapedPage from raw HTML fetched from pageURL.
func Parse(body []byte, pageURL string) (prospect.ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return prospect.ScrapedPage{}, fmt.Errorf("parse html: %w", err)
	}
	return FromDocument(doc, pageURL), nil
}

// FromDocument builds a ScrapedPage from an already parsed document.
func FromDocument(doc *goquery.Document, pageURL string) prospect.ScrapedPage {
	page := prospect.ScrapedPage{
		URL:               pageURL,
		Title:             collapse(doc.Find("title").First().Text()),
		MetaDescription:   metaContent(doc, "description"),
		HasStructuredData: doc.Find(`script[type="application/ld+json"]`).Length() > 0,
		HasViewportTag:    doc.Find(`meta[name="viewport"]`).Length() > 0,
	}

	images := doc.Find("img")
	page.Images.Total = images.Length()
	images.Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			page.Images.WithAlt++
		}
	})

	h1 := doc.Find("h1")
	page.Headings.H1Count = h1.Length()
	page.Headings.H1Text = collapse(h1.First().Text())
	page.Headings.H2Count = doc.Find("h2").Length()

	page.InternalLinkCount, page.OutboundLinkHrefs = links(doc, pageURL)

	doc.Find(noiseSelectors).Remove()
	page.PageText = truncate(textOf(doc.Find("body")), MaxBodyChars)
	page.BodyText = truncate(mainText(doc), MaxBodyChars)
	page.BodyWordCount = len(strings.Fields(page.BodyText))
	return page
}

// MainText returns the main readable content of an HTML document.
func MainText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(noiseSelectors).Remove()
	return truncate(mainText(doc), MaxBodyChars), nil
}

func mainText(doc *goquery.Document) string {
	best := ""
	for _, selector := range mainSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := textOf(s)
			if len(text) >= RegionFloor && len(text) > len(best) {
				best = text
			}
		})
	}
	if best != "" {
		return best
	}
	return textOf(doc.Find("body"))
}

// textOf joins every text node under the selection with spaces so adjacent
// block elements do not run their words together.
func textOf(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return collapse(b.String())
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("name", ""), name) {
			return true
		}
		content = collapse(s.AttrOr("content", ""))
		return false
	})
	return content
}

// links counts same-site links and collects every resolved href on the page.
func links(doc *goquery.Document, pageURL string) (int, []string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	pageKey := urlnorm.Key(pageURL)

	internal := 0
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		resolved := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		switch {
		case strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//"):
			internal++
		case strings.HasPrefix(resolved, "http") && pageKey != "" && urlnorm.Key(resolved) == pageKey:
			internal++
		}
		hrefs = append(hrefs, resolved)
	})
	return internal, hrefs
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
