package extractor

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/93bx/vidsrc-stremio-addon/internal/classifier"
)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+`)

// resourceEntriesJS lists every resource URL the page has fetched so far.
const resourceEntriesJS = `() => JSON.stringify(performance.getEntriesByType('resource').map((e) => e.name))`

// scrape is the last resort when interception saw no playlist: it scans the
// current document and the performance timeline for manifest URLs. Relative
// references are resolved against the page they were found on.
func (a *attempt) scrape(ctx context.Context) {
	base := a.frameURL
	if base == "" {
		base = a.req.TargetURL
	}

	found := 0
	record := func(ref string) {
		u, ok := absoluteURL(base, strings.TrimSpace(ref))
		if !ok || a.o.classifier.Classify(u) != classifier.Capture {
			return
		}
		a.acc.Record(a.o.classifier.Label(u), u)
		found++
	}

	htmlCtx, cancel := a.o.evalContext(ctx)
	html, err := a.session.HTML(htmlCtx)
	cancel()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Failed to read page content")
	} else {
		for _, u := range scanDocument(html) {
			record(u)
		}
	}
	if ctx.Err() != nil {
		return
	}

	evalCtx, cancel := a.o.evalContext(ctx)
	raw, err := a.session.Eval(evalCtx, resourceEntriesJS)
	cancel()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Failed to read resource entries")
	} else {
		var entries []string
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			a.logger.Debug().Err(err).Msg("Malformed resource entries")
		}
		for _, u := range entries {
			record(u)
		}
	}

	a.logger.Debug().Int("found", found).Msg("Scrape fallback finished")
}

// absoluteURL resolves ref against base and keeps only http(s) URLs.
func absoluteURL(base, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	abs, err := resolveURL(base, ref)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return abs, true
}

// scanDocument returns candidate URLs from the raw document, media elements,
// data attributes and inline scripts. Duplicates are harmless.
func scanDocument(html string) []string {
	out := urlPattern.FindAllString(html, -1)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	doc.Find("video[src], source[src], [data-src], [data-file], a[href]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-file", "href"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				out = append(out, v)
			}
		}
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, urlPattern.FindAllString(s.Text(), -1)...)
	})
	return out
}
