package domain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/#top", "https://example.com/"},
		{"https://example.com/a#b#c", "https://example.com/a"},
		{"https://example.com/a", "https://example.com/a"},
		{"#only", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonicalize(tt.in), tt.in)
	}
}

func TestGetHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM:8080/path", "example.com:8080"},
		{"https://example.com:443/", "example.com"},
		{"http://example.com:80/", "example.com"},
		{"http://example.com:443/", "example.com:443"},
		{"https://example.com:80/", "example.com:80"},
		{"https://[::1]:443/", "[::1]"},
	}
	for _, tt := range tests {
		host, err := GetHost(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, host, tt.in)
	}

	_, err := GetHost("/relative/path")
	assert.Error(t, err)

	_, err = GetHost("://bad")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	c, err := NewClassifier("https://example.com/", false)
	require.NoError(t, err)

	tests := []struct {
		name string
		href string
		want Link
	}{
		{"internal", "https://example.com/about", Link{Kind: Internal, URL: "https://example.com/about"}},
		{"internal with fragment", "https://example.com/about#team", Link{Kind: Internal, URL: "https://example.com/about"}},
		{"internal other scheme", "http://example.com/a", Link{Kind: Internal, URL: "http://example.com/a"}},
		{"host case", "https://EXAMPLE.com/a", Link{Kind: Internal, URL: "https://EXAMPLE.com/a"}},
		{"external", "https://other.com/x", Link{Kind: External, URL: "https://other.com/x"}},
		{"www is a different host", "https://www.example.com/", Link{Kind: External, URL: "https://www.example.com/"}},
		{"port is part of host", "https://example.com:8443/", Link{Kind: External, URL: "https://example.com:8443/"}},
		{"default https port", "https://example.com:443/x", Link{Kind: Internal, URL: "https://example.com:443/x"}},
		{"default http port", "http://example.com:80/x", Link{Kind: Internal, URL: "http://example.com:80/x"}},
		{"https port on http", "http://example.com:443/x", Link{Kind: External, URL: "http://example.com:443/x"}},
		{"empty", "", Link{Kind: Ignore}},
		{"fragment only", "#top", Link{Kind: Ignore}},
		{"mailto", "mailto:someone@example.com", Link{Kind: Ignore}},
		{"tel", "tel:+123456", Link{Kind: Ignore}},
		{"ftp", "ftp://example.com/file", Link{Kind: Ignore}},
		{"javascript", "javascript:void(0)", Link{Kind: Ignore}},
		{"relative", "/about", Link{Kind: Ignore}},
		{"malformed", "http://[::1", Link{Kind: Ignore}},
		{"meta refresh leftover", "5; url=/ru", Link{Kind: Ignore}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.href)
			assert.Equal(t, tt.want, got)

			// classifying the canonical form again gives the same answer
			if got.Kind != Ignore {
				assert.Equal(t, got, c.Classify(got.URL))
			}
		})
	}
}

func TestClassifyDefaultPortSeed(t *testing.T) {
	c, err := NewClassifier("https://example.com:443/", false)
	require.NoError(t, err)
	assert.Equal(t, "example.com", c.Host())

	assert.Equal(t, Internal, c.Classify("https://example.com/about").Kind)
	assert.Equal(t, Internal, c.Classify("http://example.com/about").Kind)
	assert.Equal(t, External, c.Classify("https://example.com:8443/about").Kind)

	c, err = NewClassifier("https://www.example.com:443/", true)
	require.NoError(t, err)
	assert.Equal(t, Internal, c.Classify("https://example.com:443/").Kind)
}

func TestIsSameHost(t *testing.T) {
	c, err := NewClassifier("https://example.com/", false)
	require.NoError(t, err)

	for in, want := range map[string]bool{
		"https://EXAMPLE.com/x":     true,
		"https://example.com:443/x": true,
		"https://other.com/x":       false,
		"https://example.com:81/x":  false,
	} {
		u, err := url.Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, c.IsSameHost(u), in)
	}
}

func TestClassifyStripWWW(t *testing.T) {
	c, err := NewClassifier("https://www.example.com/", true)
	require.NoError(t, err)
	assert.Equal(t, "example.com", c.Host())

	assert.Equal(t, Internal, c.Classify("https://example.com/a").Kind)
	assert.Equal(t, Internal, c.Classify("https://www.example.com/a").Kind)
	assert.Equal(t, External, c.Classify("https://blog.example.com/a").Kind)
}

func TestNewClassifierRejectsHostless(t *testing.T) {
	_, err := NewClassifier("example", false)
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "internal", Internal.String())
	assert.Equal(t, "external", External.String())
	assert.Equal(t, "ignore", Ignore.String())
}
