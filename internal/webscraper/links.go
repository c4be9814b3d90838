package webscraper

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks returns every anchor of a rendered document, resolved the way
// a browser resolves element hrefs, followed by the meta refresh target if
// the document declares one.
func ExtractLinks(body io.Reader, pageURL string) ([]RawLink, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var (
		anchors []*html.Node
		refresh string
		hasBase bool
	)
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.Data {
		case "base":
			if href, ok := attr(n, "href"); ok && !hasBase {
				if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
					base = b
					hasBase = true
				}
			}
		case "a":
			anchors = append(anchors, n)
		case "meta":
			if equiv, _ := attr(n, "http-equiv"); refresh == "" && strings.EqualFold(equiv, "refresh") {
				refresh, _ = attr(n, "content")
			}
		}
	}

	links := make([]RawLink, 0, len(anchors)+1)
	for _, a := range anchors {
		href, ok := attr(a, "href")
		if !ok {
			continue
		}
		links = append(links, RawLink{
			Href: resolve(base, href),
			Text: strings.TrimSpace(textContent(a)),
		})
	}

	if target := refreshTarget(refresh, base); target != "" {
		links = append(links, RawLink{Href: target, Text: MetaRefreshLabel})
	}
	return links, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}

// resolve mirrors HTMLAnchorElement.href: unparsable hrefs are returned as is.
func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// refreshTarget reads the URL out of a refresh directive such as
// "5; url=https://example.com/ru".
func refreshTarget(content string, base *url.URL) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if i := strings.Index(strings.ToLower(content), "url="); i >= 0 {
		target := strings.Trim(strings.TrimSpace(content[i+len("url="):]), `'"`)
		if target == "" {
			return ""
		}
		return resolve(base, target)
	}
	if i := strings.Index(content, "http"); i >= 0 {
		return content[i:]
	}
	return ""
}
