package engine

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// Explorer picks the next exploratory URL for a session: a same-host link
// discovered in the last response when one exists, otherwise a cycle
// through a small fixed path list.
type Explorer struct {
	paths  []string
	cursor int
	logger arbor.ILogger
}

func NewExplorer(paths []string, logger arbor.ILogger) *Explorer {
	if len(paths) == 0 {
		paths = []string{"/", "/blog", "/about", "/contact"}
	}
	return &Explorer{paths: paths, logger: logger}
}

// NextURL returns the exploratory sub-request URL derived from the seed
// and the HTML of the previous response.
func (e *Explorer) NextURL(seedURL, html string) string {
	if html != "" {
		if link := e.randomLink(seedURL, html); link != "" {
			return link
		}
	}
	return e.nextFixedPath(seedURL)
}

// randomLink extracts same-host anchors from the HTML and picks one at
// random. Returns "" when nothing usable was found.
func (e *Explorer) randomLink(sourceURL, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug().Err(err).Msg("Failed to parse HTML for link discovery")
		return ""
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}

	linkSet := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || shouldSkipLink(href) {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		resolved.Fragment = ""
		if !strings.EqualFold(resolved.Host, base.Host) {
			return
		}
		normalized := resolved.String()
		if !linkSet[normalized] {
			linkSet[normalized] = true
			links = append(links, normalized)
		}
	})

	if len(links) == 0 {
		return ""
	}
	return links[rand.Intn(len(links))]
}

// nextFixedPath cycles through the configured path list relative to the
// seed URL's origin.
func (e *Explorer) nextFixedPath(seedURL string) string {
	base, err := url.Parse(seedURL)
	if err != nil {
		return seedURL
	}
	path := e.paths[e.cursor%len(e.paths)]
	e.cursor++
	return fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, path)
}

func shouldSkipLink(href string) bool {
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#")
}
