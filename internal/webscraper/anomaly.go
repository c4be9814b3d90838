package webscraper

import (
	"fmt"
	"sync"
)

// AnomalyKind names the class of a recorded problem.
type AnomalyKind string

const (
	KindConsoleError        AnomalyKind = "consoleError"
	KindStatusCode          AnomalyKind = "statusCode"
	KindExternalCheck       AnomalyKind = "externalCheck"
	KindExternalUnreachable AnomalyKind = "externalUnreachable"
)

// Anomaly is a problem found while crawling. It is data, not a crawl failure.
//
// For page anomalies URL is the visited page and Origin its frontier label.
// For external anomalies URL is the external link and Origin its provenance
// ("<source page> -> <anchor text>").
type Anomaly struct {
	Kind     AnomalyKind `json:"kind"`
	Detail   string      `json:"detail"`
	URL      string      `json:"url"`
	Origin   string      `json:"origin"`
	Status   int         `json:"status,omitempty"`
	Severity string      `json:"severity,omitempty"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s (%s): %s", a.Kind, a.URL, a.Origin, a.Detail)
}

// Sink is an append-only, ordered collection of anomalies. Console events
// arrive on the browser's goroutines, so appends are synchronized.
type Sink struct {
	mu        sync.Mutex
	anomalies []Anomaly
}

// Append records a.
func (s *Sink) Append(a Anomaly) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies = append(s.anomalies, a)
}

// Len returns the number of recorded anomalies.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.anomalies)
}

// Anomalies returns a copy of everything recorded so far, in append order.
func (s *Sink) Anomalies() []Anomaly {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Anomaly, len(s.anomalies))
	copy(out, s.anomalies)
	return out
}
