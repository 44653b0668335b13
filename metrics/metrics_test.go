/* SPDX-License-Identifier: BSD-2-Clause */

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricardobranco777/httpio"
)

func TestCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveFetch(1024, 3*time.Millisecond, nil)
	c.ObserveFetch(0, time.Millisecond, errors.New("boom"))
	c.ObserveSectors(3, 2)
	c.ObserveFlush()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("error")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.fetchBytes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sectors.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sectors.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushes))
	assert.Equal(t, 1, testutil.CollectAndCount(c.fetchDuration))
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration")
}

func TestCollectorWithFile(t *testing.T) {
	data := make([]byte, 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(data)))
			w.Header().Set("Accept-Ranges", "bytes")
			return
		}
		var start, end int
		fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start : end+1])
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	f, err := httpio.Open(ctx, srv.URL, httpio.WithSectorSize(100), httpio.WithMetrics(c))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadN(ctx, 250)
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	_, err = f.ReadN(ctx, 250)
	require.NoError(t, err)
	require.NoError(t, f.Flush())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("ok")))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.fetchBytes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sectors.WithLabelValues("hit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sectors.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushes))
}
