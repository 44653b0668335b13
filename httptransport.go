/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/ricardobranco777/httpio"

// HTTPTransport implements Transport with HEAD probes and Range GETs.
// Identical concurrent probes or fetches are collapsed into one request.
// Each caller waits on its own context; the shared request is cancelled
// only once every caller waiting on it has given up.
type HTTPTransport struct {
	// Client is used for every request. If nil, http.DefaultClient is used.
	Client *http.Client

	// Header is sent with every request. The Range header is always overridden.
	Header http.Header

	// Username and Password enable basic auth when Username is non-empty.
	Username string
	Password string

	// Timeout bounds each request when positive.
	Timeout time.Duration

	// Limiter, when set, paces requests.
	Limiter *rate.Limiter

	// Logger receives request/response dumps. If nil, nothing is logged.
	Logger Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context of a shared request and the number of callers on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewHTTPTransport returns an HTTPTransport. If client is nil, http.DefaultClient is used.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client == nil {
		return http.DefaultClient
	}
	return t.Client
}

func (t *HTTPTransport) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	return req, nil
}

func (t *HTTPTransport) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	logRequest(t.Logger, req)
	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	logResponse(t.Logger, resp)
	return resp, nil
}

// shared runs fn once for concurrent callers with the same key.
// fn gets a context detached from any single caller.
func (t *HTTPTransport) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	fl := t.flights[key]
	if fl == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		if t.flights == nil {
			t.flights = make(map[string]*flight)
		}
		t.flights[key] = fl
	}
	fl.waiters++
	t.mu.Unlock()
	defer t.leave(key, fl)

	ch := t.group.DoChan(key, func() (any, error) {
		return fn(fl.ctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *HTTPTransport) leave(key string, fl *flight) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if t.flights[key] == fl {
		delete(t.flights, key)
		// A request nobody waits for must not be joined by later callers.
		t.group.Forget(key)
	}
}

func (t *HTTPTransport) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.Timeout > 0 {
		return context.WithTimeout(ctx, t.Timeout)
	}
	return context.WithCancel(ctx)
}

// Probe issues a HEAD request and reports what the server declared.
// It does not validate the result; File.Open does.
func (t *HTTPTransport) Probe(ctx context.Context, url string) (Metadata, error) {
	v, err := t.shared(ctx, "HEAD "+url, func(ctx context.Context) (any, error) {
		return t.probe(ctx, url)
	})
	if err != nil {
		return Metadata{}, err
	}
	return v.(Metadata), nil
}

func (t *HTTPTransport) probe(ctx context.Context, url string) (Metadata, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "httpio.probe",
		trace.WithAttributes(attribute.String("url.full", url)))
	defer span.End()

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	req, err := t.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return Metadata{}, recordError(span, &TransportError{Op: "probe", URL: url, Err: err})
	}
	resp, err := t.do(ctx, req)
	if err != nil {
		return Metadata{}, recordError(span, &TransportError{Op: "probe", URL: url, Err: err})
	}
	resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Metadata{}, recordError(span, statusError("probe", url, resp))
	}

	meta := FromHeaders(resp.Header)
	if meta.Length < 0 && resp.Header.Get("Content-Range") == "" && resp.ContentLength >= 0 {
		meta.Length = resp.ContentLength
	}
	return meta, nil
}

// FetchRange issues a GET with Range: bytes=start-(end-1).
func (t *HTTPTransport) FetchRange(ctx context.Context, rr RangeRequest) ([]byte, error) {
	key := "GET " + rr.URL + " " + strconv.FormatInt(rr.Start, 10) + "-" + strconv.FormatInt(rr.End, 10)
	if rr.IfMatch != nil {
		key += " " + rr.IfMatch.ETag + " " + rr.IfMatch.LastModified
	}
	v, err := t.shared(ctx, key, func(ctx context.Context) (any, error) {
		return t.fetch(ctx, rr)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (t *HTTPTransport) fetch(ctx context.Context, rr RangeRequest) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "httpio.fetch",
		trace.WithAttributes(
			attribute.String("url.full", rr.URL),
			attribute.Int64("httpio.range.start", rr.Start),
			attribute.Int64("httpio.range.end", rr.End),
		))
	defer span.End()

	fail := func(resp *http.Response, err error) ([]byte, error) {
		te := &TransportError{Op: "fetch", URL: rr.URL, Err: err}
		if resp != nil {
			te.StatusCode, te.Status = resp.StatusCode, resp.Status
		}
		return nil, recordError(span, te)
	}

	if rr.Len() <= 0 {
		return fail(nil, fmt.Errorf("empty range %d-%d", rr.Start, rr.End))
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	req, err := t.newRequest(ctx, http.MethodGet, rr.URL)
	if err != nil {
		return fail(nil, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rr.Start, rr.End-1))
	if rr.IfMatch != nil {
		rr.IfMatch.ApplyValidators(req.Header)
	}

	resp, err := t.do(ctx, req)
	if err != nil {
		return fail(nil, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// The server ignored the Range header and sent the whole resource.
		if _, err := io.CopyN(io.Discard, resp.Body, rr.Start); err != nil {
			return fail(resp, err)
		}
	default:
		return nil, recordError(span, statusError("fetch", rr.URL, resp))
	}

	buf := make([]byte, rr.Len())
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return fail(resp, err)
	}
	return buf, nil
}

// Close releases idle connections held by the client.
func (t *HTTPTransport) Close() error {
	t.client().CloseIdleConnections()
	return nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
