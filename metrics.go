/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import "time"

// Metrics receives read engine events.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveFetch records one raw fetch of n bytes.
	ObserveFetch(n int64, d time.Duration, err error)
	// ObserveSectors records cache hits and misses for one read.
	ObserveSectors(hits, misses int)
	// ObserveFlush records a cache flush.
	ObserveFlush()
}

type noopMetrics struct{}

func (noopMetrics) ObserveFetch(int64, time.Duration, error) {}
func (noopMetrics) ObserveSectors(int, int)                  {}
func (noopMetrics) ObserveFlush()                            {}
