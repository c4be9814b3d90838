package webscraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (compatible; site-crawler/1.0)"
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	maxDrainBytes         = 64 * 1024
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExternalVerifier sends one GET per external link and records links that
// answer with a status above ExternalFailureAbove. 401 and 403 are tolerated.
type ExternalVerifier struct {
	client         Doer
	userAgent      string
	timeout        time.Duration
	concurrency    int
	maxRetries     uint64
	initialBackoff time.Duration
	logger         *slog.Logger
}

// VerifierOption configures an ExternalVerifier.
type VerifierOption func(*ExternalVerifier)

func WithHTTPClient(client Doer) VerifierOption {
	return func(v *ExternalVerifier) {
		if client != nil {
			v.client = client
		}
	}
}

func WithUserAgent(ua string) VerifierOption {
	return func(v *ExternalVerifier) {
		if ua != "" {
			v.userAgent = ua
		}
	}
}

// WithRequestTimeout bounds every single GET.
func WithRequestTimeout(d time.Duration) VerifierOption {
	return func(v *ExternalVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithConcurrency sets how many links are checked at once, capped at
// MaxExternalConcurrency. Anomalies are recorded in discovery order regardless.
func WithConcurrency(n int) VerifierOption {
	return func(v *ExternalVerifier) {
		if n > MaxExternalConcurrency {
			n = MaxExternalConcurrency
		}
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithRetries sets how often a transport failure is retried, and the first
// backoff interval.
func WithRetries(max uint64, initial time.Duration) VerifierOption {
	return func(v *ExternalVerifier) {
		v.maxRetries = max
		if initial > 0 {
			v.initialBackoff = initial
		}
	}
}

func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *ExternalVerifier) {
		if l != nil {
			v.logger = l
		}
	}
}

func NewExternalVerifier(opts ...VerifierOption) *ExternalVerifier {
	v := &ExternalVerifier{
		client:         &http.Client{},
		userAgent:      DefaultUserAgent,
		timeout:        DefaultTimeout,
		concurrency:    1,
		maxRetries:     2,
		initialBackoff: defaultInitialBackoff,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks links and appends failures to sink in the order of links.
// Only cancellation of ctx aborts the pass; results finished before that are
// still recorded.
func (v *ExternalVerifier) Verify(ctx context.Context, links []ExternalLink, sink *Sink) error {
	results := make([]*Anomaly, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, link := range links {
		g.Go(func() error {
			a, err := v.check(gctx, link)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	err := g.Wait()

	for _, a := range results {
		if a != nil {
			sink.Append(*a)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}

// check returns an anomaly for a broken link, nil for a healthy one, and an
// error only when ctx is done.
func (v *ExternalVerifier) check(ctx context.Context, link ExternalLink) (*Anomaly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, err := v.status(ctx, link.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		v.logger.Debug("external link unreachable", "url", link.URL, "error", err)
		return &Anomaly{
			Kind:   KindExternalUnreachable,
			Detail: err.Error(),
			URL:    link.URL,
			Origin: link.Provenance,
		}, nil
	}

	v.logger.Debug("external link checked", "url", link.URL, "status", status)
	if status > ExternalFailureAbove {
		return &Anomaly{
			Kind:   KindExternalCheck,
			Detail: fmt.Sprintf("status code %d", status),
			URL:    link.URL,
			Origin: link.Provenance,
			Status: status,
		}, nil
	}
	return nil, nil
}

// status GETs url, retrying transport failures with exponential backoff.
func (v *ExternalVerifier) status(ctx context.Context, url string) (int, error) {
	var status int
	op := func() error {
		s, err := v.get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		status = s
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.initialBackoff
	b.MaxInterval = defaultMaxBackoff
	bo := backoff.WithContext(backoff.WithMaxRetries(b, v.maxRetries), ctx)

	if err := backoff.Retry(op, bo); err != nil {
		return 0, err
	}
	return status, nil
}

func (v *ExternalVerifier) get(ctx context.Context, url string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	return resp.StatusCode, nil
}
