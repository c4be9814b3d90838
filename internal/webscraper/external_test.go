package webscraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExternalVerifierThreshold(t *testing.T) {
	srv := statusServer(t)

	tests := []struct {
		status int
		broken bool
	}{
		{200, false},
		{301, false},
		{401, false},
		{403, false},
		{404, true},
		{410, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			var sink Sink
			link := ExternalLink{URL: srv.URL + "/" + strconv.Itoa(tt.status), Provenance: "https://example.com/ -> x"}

			v := NewExternalVerifier(WithVerifierLogger(quietLogger()))
			require.NoError(t, v.Verify(context.Background(), []ExternalLink{link}, &sink))

			if !tt.broken {
				assert.Zero(t, sink.Len())
				return
			}
			got := sink.Anomalies()
			require.Len(t, got, 1)
			assert.Equal(t, KindExternalCheck, got[0].Kind)
			assert.Equal(t, tt.status, got[0].Status)
			assert.Equal(t, link.Provenance, got[0].Origin)
			assert.Equal(t, link.URL, got[0].URL)
		})
	}
}

func TestExternalVerifierKeepsDiscoveryOrder(t *testing.T) {
	srv := statusServer(t)
	var links []ExternalLink
	for _, code := range []string{"500", "200", "404", "502", "403", "410"} {
		links = append(links, ExternalLink{URL: srv.URL + "/" + code, Provenance: code})
	}

	var sink Sink
	v := NewExternalVerifier(WithConcurrency(4), WithVerifierLogger(quietLogger()))
	require.NoError(t, v.Verify(context.Background(), links, &sink))

	var order []string
	for _, a := range sink.Anomalies() {
		order = append(order, a.Origin)
	}
	assert.Equal(t, []string{"500", "404", "502", "410"}, order)
}

func TestExternalVerifierSendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
	}))
	defer srv.Close()

	var sink Sink
	v := NewExternalVerifier(WithUserAgent("link-check/2"), WithVerifierLogger(quietLogger()))
	require.NoError(t, v.Verify(context.Background(), []ExternalLink{{URL: srv.URL}}, &sink))
	assert.Equal(t, "link-check/2", ua.Load())
}

type flakyDoer struct {
	failures int32
	calls    atomic.Int32
}

func (d *flakyDoer) Do(req *http.Request) (*http.Response, error) {
	n := d.calls.Add(1)
	if n <= d.failures {
		return nil, errors.New("connection reset by peer")
	}
	return &http.Response{StatusCode: http.StatusNotFound, Body: http.NoBody}, nil
}

func TestExternalVerifierRetriesTransportErrors(t *testing.T) {
	doer := &flakyDoer{failures: 2}
	var sink Sink
	v := NewExternalVerifier(
		WithHTTPClient(doer),
		WithRetries(3, time.Millisecond),
		WithVerifierLogger(quietLogger()),
	)

	require.NoError(t, v.Verify(context.Background(), []ExternalLink{{URL: "https://other.com/x", Provenance: "p"}}, &sink))
	assert.Equal(t, int32(3), doer.calls.Load())

	got := sink.Anomalies()
	require.Len(t, got, 1)
	assert.Equal(t, KindExternalCheck, got[0].Kind)
	assert.Equal(t, 404, got[0].Status)
}

func TestExternalVerifierRecordsUnreachable(t *testing.T) {
	doer := &flakyDoer{failures: 100}
	var sink Sink
	v := NewExternalVerifier(
		WithHTTPClient(doer),
		WithRetries(1, time.Millisecond),
		WithVerifierLogger(quietLogger()),
	)

	require.NoError(t, v.Verify(context.Background(), []ExternalLink{{URL: "https://gone.example/", Provenance: "p"}}, &sink))
	assert.Equal(t, int32(2), doer.calls.Load())

	got := sink.Anomalies()
	require.Len(t, got, 1)
	assert.Equal(t, KindExternalUnreachable, got[0].Kind)
	assert.Contains(t, got[0].Detail, "connection reset by peer")
	assert.Equal(t, "p", got[0].Origin)
}

func TestExternalVerifierCanceled(t *testing.T) {
	srv := statusServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sink Sink
	v := NewExternalVerifier(WithVerifierLogger(quietLogger()))
	err := v.Verify(ctx, []ExternalLink{{URL: srv.URL + "/500"}}, &sink)
	assert.ErrorIs(t, err, ErrVerification)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sink.Len())
}

func TestWithConcurrencyBounds(t *testing.T) {
	assert.Equal(t, 1, NewExternalVerifier(WithConcurrency(0)).concurrency)
	assert.Equal(t, MaxExternalConcurrency, NewExternalVerifier(WithConcurrency(1000)).concurrency)
}
