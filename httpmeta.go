/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"net/http"
	"strconv"
	"strings"
)

// Metadata is what a probe learns about a remote resource.
type Metadata struct {
	// Length is the total size in bytes, or -1 if the server did not report one.
	Length       int64
	AcceptRanges string
	ETag         string
	LastModified string
}

// SupportsRanges reports whether the resource declared byte-range support.
func (m Metadata) SupportsRanges() bool {
	for unit := range strings.SplitSeq(m.AcceptRanges, ",") {
		if strings.EqualFold(strings.TrimSpace(unit), "bytes") {
			return true
		}
	}
	return false
}

// FromHeaders extracts metadata from probe response headers.
// Content-Range (from a 206 response) takes precedence over Content-Length.
func FromHeaders(h http.Header) Metadata {
	m := Metadata{
		Length:       -1,
		AcceptRanges: h.Get("Accept-Ranges"),
		ETag:         h.Get("ETag"),
		LastModified: h.Get("Last-Modified"),
	}

	// Format: "bytes start-end/total"
	if cr := h.Get("Content-Range"); cr != "" {
		if _, total, ok := strings.Cut(cr, "/"); ok {
			if length, err := strconv.ParseInt(total, 10, 64); err == nil && length >= 0 {
				m.Length = length
			}
		}
		return m
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if length, err := strconv.ParseInt(cl, 10, 64); err == nil && length >= 0 {
			m.Length = length
		}
	}
	return m
}

// Equal reports whether two metadata values represent the same resource version.
// Fields unknown on either side are not compared.
func (m Metadata) Equal(other Metadata) bool {
	if m.ETag != "" && other.ETag != "" && m.ETag != other.ETag {
		return false
	}
	if m.LastModified != "" && other.LastModified != "" && m.LastModified != other.LastModified {
		return false
	}
	if m.Length >= 0 && other.Length >= 0 && m.Length != other.Length {
		return false
	}
	return true
}

// ApplyValidators adds conditional headers to a request.
func (m Metadata) ApplyValidators(h http.Header) {
	if m.ETag != "" {
		h.Set("If-Match", m.ETag)
	}
	if m.LastModified != "" {
		h.Set("If-Unmodified-Since", m.LastModified)
	}
}
