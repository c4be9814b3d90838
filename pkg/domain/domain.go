package domain

import (
	"errors"
	"net/url"
	"strings"
)

// Kind tells how a discovered link relates to the crawled site.
type Kind int

const (
	Ignore Kind = iota
	External
	Internal
)

func (k Kind) String() string {
	switch k {
	case External:
		return "external"
	case Internal:
		return "internal"
	default:
		return "ignore"
	}
}

// Link is a classified link. URL is empty for ignored links.
type Link struct {
	Kind Kind
	URL  string
}

// defaultPorts maps each crawlable scheme to the port a browser leaves out
// of a URL's host.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// GetHost returns the host of an absolute URL the way a browser reports it:
// lower-cased, with the port kept only when it is not the scheme's default.
func GetHost(u string) (string, error) {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return "", errors.New("error parsing URL")
	}
	if parsedUrl.Host == "" {
		return "", errors.New("URL has no host")
	}
	return hostOf(parsedUrl), nil
}

func hostOf(u *url.URL) string {
	host := strings.ToLower(u.Host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return host
}

// Canonicalize strips everything from the first '#' onward.
func Canonicalize(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

// Classifier sorts raw hrefs into internal, external and ignorable links
// relative to a single target host.
type Classifier struct {
	host     string
	stripWWW bool
}

// NewClassifier builds a classifier for the host of target. With stripWWW,
// "www.example.com" and "example.com" count as the same host.
func NewClassifier(target string, stripWWW bool) (*Classifier, error) {
	host, err := GetHost(target)
	if err != nil {
		return nil, err
	}
	c := &Classifier{stripWWW: stripWWW}
	c.host = c.normalizeHost(host)
	return c, nil
}

// Host returns the normalized target host.
func (c *Classifier) Host() string {
	return c.host
}

// Classify canonicalizes href and decides whether it is internal, external
// or ignorable. Malformed or relative hrefs are ignored.
func (c *Classifier) Classify(href string) Link {
	canonical := Canonicalize(href)
	if canonical == "" {
		return Link{Kind: Ignore}
	}

	parsed, err := url.Parse(canonical)
	if err != nil || !parsed.IsAbs() {
		return Link{Kind: Ignore}
	}
	if _, ok := defaultPorts[parsed.Scheme]; !ok {
		return Link{Kind: Ignore}
	}
	if parsed.Host == "" {
		return Link{Kind: Ignore}
	}

	if !c.IsSameHost(parsed) {
		return Link{Kind: External, URL: canonical}
	}
	return Link{Kind: Internal, URL: canonical}
}

// IsSameHost reports whether u points at the target host.
func (c *Classifier) IsSameHost(u *url.URL) bool {
	return c.normalizeHost(hostOf(u)) == c.host
}

func (c *Classifier) normalizeHost(host string) string {
	host = strings.ToLower(host)
	if c.stripWWW {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}
