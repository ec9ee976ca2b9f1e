package scraper

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// linkText is the visible text of a per-event calendar download link.
	linkText = "ics"
	// linkSuffix catches calendar links whose text is something else.
	linkSuffix = ".ics"
)

// Links is what ExtractFeedLinks found on a page.
type Links struct {
	// URLs are the resolved feed links, sorted and without duplicates.
	URLs []string
	// Rejected are matching hrefs that could not be parsed as URLs.
	Rejected []string
}

// ExtractFeedLinks collects the absolute URLs of every calendar feed linked
// from the page.
//
// An anchor qualifies when its text is "ics" or when its href ends in
// ".ics", both compared case-insensitively. Relative hrefs are resolved
// against pageURL.
func ExtractFeedLinks(markup string, pageURL string) (Links, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Links{}, fmt.Errorf("error parsing page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Links{}, fmt.Errorf("error parsing HTML: %w", err)
	}

	links := map[string]struct{}{}
	rejected := map[string]struct{}{}
	add := func(href string) {
		ref, err := url.Parse(href)
		if err != nil {
			rejected[href] = struct{}{}
			return
		}
		links[base.ResolveReference(ref).String()] = struct{}{}
	}

	// Preferred: visible "ICS" link text
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if strings.ToLower(strippedText(s)) == linkText {
			add(href)
		}
	})

	// Fallback: any link ending with .ics
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" && strings.HasSuffix(strings.ToLower(href), linkSuffix) {
			add(href)
		}
	})

	return Links{URLs: sortedKeys(links), Rejected: sortedKeys(rejected)}, nil
}

// strippedText joins the descendant text nodes of s, each trimmed of
// surrounding whitespace.
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
