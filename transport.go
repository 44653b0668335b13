/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import "context"

// RangeRequest describes one raw fetch of the half-open byte span [Start, End).
type RangeRequest struct {
	URL   string
	Start int64
	End   int64

	// IfMatch, when non-nil, makes the fetch conditional on the resource
	// still matching these validators.
	IfMatch *Metadata
}

// Len returns the number of bytes requested.
func (r RangeRequest) Len() int64 { return r.End - r.Start }

// Transport performs the two primitives a File needs from the remote side.
// Implementations must be safe for concurrent use; a single Transport may be
// shared by many files. If a Transport also implements io.Closer, a File that
// created it closes it on Close.
type Transport interface {
	// Probe reports the resource length and range support.
	Probe(ctx context.Context, url string) (Metadata, error)

	// FetchRange returns exactly req.Len() bytes or an error.
	FetchRange(ctx context.Context, req RangeRequest) ([]byte, error)
}
