package webscraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yingtu35/site-crawler/pkg/domain"
)

var (
	// ErrInvalidTarget is returned before any work when the seed URL is not
	// an absolute URL with a host.
	ErrInvalidTarget = errors.New("invalid target URL")

	// ErrLaunch is returned when the browser cannot be started.
	ErrLaunch = errors.New("launch browser")

	// ErrTraversal wraps a failure that aborted the page traversal.
	ErrTraversal = errors.New("traversal aborted")

	// ErrVerification wraps a failure that aborted external link checks.
	ErrVerification = errors.New("external link verification aborted")
)

// Launcher starts the page-fetching browser. Browsers must be closed by the
// caller on every path.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	OnConsole(fn func(ConsoleEvent))
	OnDialog(fn func(Dialog))
	// Goto navigates to url and waits for the network to go idle. An error
	// means the page could not be loaded at all (downloads, DNS failures).
	Goto(ctx context.Context, url string) (*Response, error)
	// Links returns the outbound links of the loaded page, including at most
	// one meta refresh target.
	Links(ctx context.Context) ([]RawLink, error)
}

type Dialog interface {
	Type() string
	Dismiss() error
}

// Response is the main-resource response of a navigation.
type Response struct {
	Status int
	URL    string // after redirects
}

// RawLink is an href as found on a page with its anchor text.
type RawLink struct {
	Href string
	Text string
}

// ConsoleEvent is a diagnostic message emitted by a page.
type ConsoleEvent struct {
	Severity  string
	Text      string
	SourceURL string
	Line      int
}

// NewConsoleEvent normalizes a console payload. A missing severity becomes
// "unknown" so it is still reported.
func NewConsoleEvent(severity, text, sourceURL string, line int) ConsoleEvent {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		severity = "unknown"
	}
	if line < 0 {
		line = 0
	}
	return ConsoleEvent{Severity: severity, Text: text, SourceURL: sourceURL, Line: line}
}

// IsPlainLog reports whether the event is an ordinary console.log call.
func (e ConsoleEvent) IsPlainLog() bool {
	return e.Severity == "log"
}

func (e ConsoleEvent) Detail() string {
	return fmt.Sprintf("%s %s %d", e.Text, e.SourceURL, e.Line)
}

// FatalPolicy decides what Crawl returns when the traversal aborts.
type FatalPolicy int

const (
	// ReturnPartial logs the failure, still verifies external links and
	// returns the anomalies gathered so far.
	ReturnPartial FatalPolicy = iota
	// Discard returns no anomalies and an error wrapping ErrTraversal.
	Discard
)

func (p FatalPolicy) String() string {
	if p == Discard {
		return "discard"
	}
	return "partial"
}

// State is the lifecycle phase of a single crawl.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Verifier checks external links and records failures into sink.
type Verifier interface {
	Verify(ctx context.Context, links []ExternalLink, sink *Sink) error
}

// Crawler walks every internally reachable page of a site and reports
// anomalies. A Crawler holds no per-crawl state and may run several crawls
// concurrently; the state hook is then shared by all of them.
type Crawler struct {
	launcher    Launcher
	verifier    Verifier
	logger      *slog.Logger
	wait        time.Duration
	pageLimit   int
	stripWWW    bool
	policy      FatalPolicy
	newSelector func() Selector
	stateHook   func(target string, s State)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWait sets the pause between two page visits.
func WithWait(d time.Duration) Option {
	return func(c *Crawler) {
		c.wait = d
	}
}

// WithPageLimit caps the number of visited URLs. Non-positive values keep
// DefaultPageLimit.
func WithPageLimit(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

func WithVerifier(v Verifier) Option {
	return func(c *Crawler) {
		c.verifier = v
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStripWWW treats "www.<host>" as the target host.
func WithStripWWW(strip bool) Option {
	return func(c *Crawler) {
		c.stripWWW = strip
	}
}

func WithFatalPolicy(p FatalPolicy) Option {
	return func(c *Crawler) {
		c.policy = p
	}
}

// WithSelector sets how the next page is chosen. The factory is called once
// per crawl.
func WithSelector(newSelector func() Selector) Option {
	return func(c *Crawler) {
		if newSelector != nil {
			c.newSelector = newSelector
		}
	}
}

// WithStateHook is called on every lifecycle transition with the target of
// the crawl that moved. Concurrent crawls call fn concurrently.
func WithStateHook(fn func(target string, s State)) Option {
	return func(c *Crawler) {
		c.stateHook = fn
	}
}

func New(launcher Launcher, opts ...Option) *Crawler {
	c := &Crawler{
		launcher:    launcher,
		logger:      slog.Default(),
		pageLimit:   DefaultPageLimit,
		policy:      ReturnPartial,
		newSelector: func() Selector { return &FIFOSelector{} },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.verifier == nil {
		c.verifier = NewExternalVerifier(WithVerifierLogger(c.logger))
	}
	return c
}

// crawl is the state of one Crawl call.
type crawl struct {
	classifier *domain.Classifier
	frontier   *Frontier
	visited    *VisitedSet
	externals  *ExternalLinks
	sink       *Sink
	logger     *slog.Logger

	mu           sync.Mutex
	currentURL   string
	currentLabel string
}

func (r *crawl) setCurrent(url, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentURL, r.currentLabel = url, label
}

func (r *crawl) current() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentURL, r.currentLabel
}

// Crawl visits every page of target's host reachable from target, then
// checks the external links found on the way. It fails up front with
// ErrInvalidTarget; launch failures return ErrLaunch. Other failures follow
// the configured FatalPolicy.
func (c *Crawler) Crawl(ctx context.Context, target string) ([]Anomaly, error) {
	classifier, err := domain.NewClassifier(target, c.stripWWW)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTarget, target, err)
	}

	r := &crawl{
		classifier: classifier,
		frontier:   NewFrontier(c.newSelector()),
		visited:    NewVisitedSet(),
		externals:  NewExternalLinks(),
		sink:       &Sink{},
		logger:     c.logger.With("target", target),
	}
	r.frontier.Put(domain.Canonicalize(target), StartLabel)

	c.transition(target, StateRunning)
	if err := c.traverse(ctx, r); err != nil {
		if errors.Is(err, ErrLaunch) || c.policy == Discard {
			r.logger.Error("crawl failed", "error", err)
			c.transition(target, StateDone)
			return nil, err
		}
		r.logger.Error("traversal aborted, keeping partial results", "error", err)
	}

	c.transition(target, StateDraining)
	if r.externals.Len() > 0 {
		if err := c.verifier.Verify(ctx, r.externals.List(), r.sink); err != nil {
			r.logger.Error("external link verification aborted", "error", err)
		}
	}
	c.transition(target, StateDone)

	r.logger.Info("crawl finished",
		"visited", r.visited.Len(),
		"external_links", r.externals.Len(),
		"anomalies", r.sink.Len(),
	)
	return r.sink.Anomalies(), nil
}

func (c *Crawler) transition(target string, s State) {
	c.logger.Debug("crawl state", "target", target, "state", s.String())
	if c.stateHook != nil {
		c.stateHook(target, s)
	}
}

// traverse owns the browser for the whole page loop.
func (c *Crawler) traverse(ctx context.Context, r *crawl) (err error) {
	browser, err := c.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.logger.Warn("closing browser", "error", cerr)
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: open page: %w", ErrTraversal, err)
	}

	page.OnDialog(func(d Dialog) {
		if err := d.Dismiss(); err != nil {
			r.logger.Warn("dismissing dialog", "type", d.Type(), "error", err)
			return
		}
		r.logger.Debug("dialog dismissed", "type", d.Type())
	})
	page.OnConsole(func(ev ConsoleEvent) {
		if ev.IsPlainLog() {
			return
		}
		url, label := r.current()
		r.sink.Append(Anomaly{
			Kind:     KindConsoleError,
			Detail:   ev.Detail(),
			URL:      url,
			Origin:   label,
			Severity: ev.Severity,
		})
	})

	for n := 1; r.visited.Len() < c.pageLimit; n++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrTraversal, err)
		}
		target, ok := r.frontier.Next(r.visited)
		if !ok {
			break
		}
		label, _ := r.frontier.Label(target)

		r.visited.Add(target)
		r.setCurrent(target, label)
		r.logger.Debug(fmt.Sprintf("Page %d", n), "url", target, "origin", label)

		if c.wait > 0 && n > 1 {
			r.logger.Debug("pause", "wait", c.wait.String())
			if err := sleep(ctx, c.wait); err != nil {
				return fmt.Errorf("%w: %w", ErrTraversal, err)
			}
		}

		resp, err := page.Goto(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrTraversal, ctx.Err())
			}
			r.logger.Debug("page not loaded, skipping", "url", target, "error", err)
			continue
		}

		if resolved := domain.Canonicalize(resp.URL); resolved != "" {
			r.visited.Add(resolved)
			if resolved != target {
				r.logger.Debug("redirected", "url", target, "resolved", resolved)
			}
		}

		if resp.Status != SuccessStatus {
			r.sink.Append(Anomaly{
				Kind:   KindStatusCode,
				Detail: fmt.Sprintf("status code %d", resp.Status),
				URL:    target,
				Origin: label,
				Status: resp.Status,
			})
		}

		links, err := page.Links(ctx)
		if err != nil {
			return fmt.Errorf("%w: extract links from %s: %w", ErrTraversal, target, err)
		}
		for _, link := range links {
			r.enqueue(target, link)
		}
	}
	return nil
}

func (r *crawl) enqueue(page string, raw RawLink) {
	link := r.classifier.Classify(raw.Href)
	switch link.Kind {
	case domain.External:
		if r.externals.Put(link.URL, page, raw.Text) {
			r.logger.Debug("external link", "url", link.URL, "page", page)
		}
	case domain.Internal:
		r.frontier.Put(link.URL, raw.Text)
	default:
		if raw.Href != "" {
			r.logger.Debug("ignored link", "href", raw.Href, "page", page)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
