package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/authcrawl/internal/cleaner"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// ParseHTML fills the title, links, meta tags, form flag and cleaned content
// of page from its HTML. A cleaner failure leaves Content empty; the page is
// still usable.
func ParseHTML(page *Page, cl cleaner.Cleaner) error {
	root, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		return err
	}
	doc := goquery.NewDocumentFromNode(root)

	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	page.HasForm = doc.Find("form").Length() > 0
	page.Meta = extractMeta(doc)
	page.Links = extractLinkSet(doc, page.BaseURL())

	if cl != nil {
		content, err := cl.Clean(page.HTML)
		if err != nil {
			logger.Debug("content cleaning failed", "url", page.URL, "cleaner", cl.Name(), "error", err)
		} else {
			page.Content = content
		}
	}
	return nil
}

// extractMeta collects <meta name|property content> pairs. The first
// occurrence of a key wins.
func extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("name")
		if !ok || key == "" {
			key, ok = s.Attr("property")
		}
		if !ok || key == "" {
			return
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, seen := meta[key]; seen {
			return
		}
		content, _ := s.Attr("content")
		meta[key] = strings.TrimSpace(content)
	})
	return meta
}

// extractLinkSet groups anchors into internal/external by host and frames by
// src. References are kept as written; the crawler resolves them.
func extractLinkSet(doc *goquery.Document, base string) LinkSet {
	baseURL, _ := url.Parse(base)
	links := make(LinkSet)

	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		category := CategoryInternal
		if !sameHost(baseURL, href) {
			category = CategoryExternal
		}
		links[category] = append(links[category], Link{
			Href: href,
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})

	doc.Find("iframe[src], frame[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src = strings.TrimSpace(src); src == "" {
			return
		}
		links[CategoryFrames] = append(links[CategoryFrames], Link{Src: src})
	})

	if len(links) == 0 {
		return nil
	}
	return links
}

// sameHost reports whether ref stays on base's host. Relative references do.
func sameHost(base *url.URL, ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	return base != nil && strings.EqualFold(u.Host, base.Host)
}
