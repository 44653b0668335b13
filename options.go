/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NoCache disables the sector cache: every read is exactly one raw fetch.
const NoCache = 0

type options struct {
	sectorSize  int64
	transport   Transport
	client      *http.Client
	header      http.Header
	username    string
	password    string
	timeout     time.Duration
	limiter     *rate.Limiter
	conditional bool
	logger      Logger
	metrics     Metrics
	store       StoreFactory
}

// Option configures a File.
type Option func(*options)

// WithSectorSize sets the cache sector size. Zero or negative disables caching.
func WithSectorSize(n int64) Option {
	return func(o *options) {
		o.sectorSize = max(n, NoCache)
	}
}

// WithTransport sets the transport used for probes and fetches.
// The HTTP-specific options below are ignored when a transport is given,
// and the File does not close it.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithClient sets the HTTP client used by the default transport.
func WithClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithHeader adds a header sent with every probe and fetch.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Add(key, value)
	}
}

// WithBasicAuth sends basic auth credentials with every request.
func WithBasicAuth(username, password string) Option {
	return func(o *options) {
		o.username, o.password = username, password
	}
}

// WithTimeout bounds every probe and fetch.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRateLimit paces requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(r, burst)
	}
}

// WithConditional makes every fetch conditional on the validators (ETag,
// Last-Modified) seen by the probe. A changed resource then fails the read
// with ErrResourceChanged instead of mixing versions in the cache.
func WithConditional() Option {
	return func(o *options) {
		o.conditional = true
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSectorStore sets how the sector store is built once the length is known.
func WithSectorStore(f StoreFactory) Option {
	return func(o *options) {
		o.store = f
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics: noopMetrics{},
		store:   MemoryStore,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}
	if o.store == nil {
		o.store = MemoryStore
	}
	return o
}

func (o *options) log() Logger {
	if o.logger == nil {
		return NoopLogger()
	}
	return o.logger
}

func (o *options) httpTransport() *HTTPTransport {
	return &HTTPTransport{
		Client:   o.client,
		Header:   o.header,
		Username: o.username,
		Password: o.password,
		Timeout:  o.timeout,
		Limiter:  o.limiter,
		Logger:   o.logger,
	}
}
