package webscraper

import (
	"math/rand/v2"
	"sync"
)

// linkSet is an insertion-ordered map from canonical URL to a label where
// the first writer wins.
type linkSet struct {
	keys   []string
	labels map[string]string
}

func newLinkSet() linkSet {
	return linkSet{labels: make(map[string]string)}
}

func (s *linkSet) put(url, label string) bool {
	if _, ok := s.labels[url]; ok {
		return false
	}
	s.labels[url] = label
	s.keys = append(s.keys, url)
	return true
}

// Selector picks the next URL to visit out of the frontier's keys, which are
// passed in discovery order. It returns -1 when every key is visited.
type Selector interface {
	Select(keys []string, visited *VisitedSet) int
}

// FIFOSelector picks the earliest discovered unvisited URL. Visited only
// grows, so a cursor past the visited prefix is enough.
type FIFOSelector struct {
	cursor int
}

func (f *FIFOSelector) Select(keys []string, visited *VisitedSet) int {
	for f.cursor < len(keys) && visited.Has(keys[f.cursor]) {
		f.cursor++
	}
	if f.cursor == len(keys) {
		return -1
	}
	return f.cursor
}

// RandomSelector picks uniformly among all unvisited URLs so that links late
// on a large page are not starved behind earlier ones.
type RandomSelector struct {
	Rand *rand.Rand // nil uses the global source
}

func (r *RandomSelector) Select(keys []string, visited *VisitedSet) int {
	candidates := make([]int, 0, len(keys))
	for i, k := range keys {
		if !visited.Has(k) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	if r.Rand != nil {
		return candidates[r.Rand.IntN(len(candidates))]
	}
	return candidates[rand.IntN(len(candidates))]
}

// Frontier holds discovered internal URLs with the label of whoever
// introduced them.
type Frontier struct {
	mu       sync.Mutex
	set      linkSet
	selector Selector
}

// NewFrontier returns an empty frontier. A nil selector means FIFO.
func NewFrontier(selector Selector) *Frontier {
	if selector == nil {
		selector = &FIFOSelector{}
	}
	return &Frontier{set: newLinkSet(), selector: selector}
}

// Put adds url with label unless url is already known. It reports whether
// the URL was new.
func (f *Frontier) Put(url, label string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set.put(url, label)
}

// Label returns the origin label url was first discovered with.
func (f *Frontier) Label(url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	label, ok := f.set.labels[url]
	return label, ok
}

// Len returns the number of distinct URLs ever put.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.set.keys)
}

// Next returns an unvisited URL, or false when none is left.
func (f *Frontier) Next(visited *VisitedSet) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.selector.Select(f.set.keys, visited)
	if i < 0 {
		return "", false
	}
	return f.set.keys[i], true
}

// VisitedSet records URLs already processed, including post-redirect URLs.
type VisitedSet struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Add marks url visited. Adding twice is a no-op.
func (v *VisitedSet) Add(url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.urls[url] = struct{}{}
}

func (v *VisitedSet) Has(url string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.urls[url]
	return ok
}

func (v *VisitedSet) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.urls)
}

// ExternalLink is an off-site URL and where it was first seen.
type ExternalLink struct {
	URL        string
	Provenance string
}

// ExternalLinks collects off-site URLs in discovery order, keeping the
// provenance of the first occurrence.
type ExternalLinks struct {
	mu  sync.Mutex
	set linkSet
}

func NewExternalLinks() *ExternalLinks {
	return &ExternalLinks{set: newLinkSet()}
}

// Put records url as found on page under the given anchor text.
func (e *ExternalLinks) Put(url, page, anchor string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.put(url, page+" -> "+anchor)
}

func (e *ExternalLinks) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.set.keys)
}

// List returns the links in discovery order.
func (e *ExternalLinks) List() []ExternalLink {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExternalLink, 0, len(e.set.keys))
	for _, k := range e.set.keys {
		out = append(out, ExternalLink{URL: k, Provenance: e.set.labels[k]})
	}
	return out
}
