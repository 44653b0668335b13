/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// helper to build headers
func hdr(kv ...string) http.Header {
	h := make(http.Header)
	for i := 0; i < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestFromHeadersFullMetadata(t *testing.T) {
	m := FromHeaders(hdr(
		"Content-Length", "100",
		"Accept-Ranges", "bytes",
		"ETag", `"abc123"`,
		"Last-Modified", "Tue, 06 Nov 2025 19:00:00 GMT",
	))

	assert.Equal(t, int64(100), m.Length)
	assert.Equal(t, `"abc123"`, m.ETag)
	assert.Equal(t, "Tue, 06 Nov 2025 19:00:00 GMT", m.LastModified)
	assert.True(t, m.SupportsRanges())
}

func TestFromHeadersContentRange(t *testing.T) {
	m := FromHeaders(hdr("Content-Range", "bytes 100-199/12345"))
	assert.Equal(t, int64(12345), m.Length)
}

func TestFromHeadersContentRangeTakesPrecedence(t *testing.T) {
	m := FromHeaders(hdr(
		"Content-Range", "bytes 0-511/4096",
		"Content-Length", "512",
	))
	assert.Equal(t, int64(4096), m.Length)
}

func TestFromHeadersMissingOrInvalidLength(t *testing.T) {
	for name, h := range map[string]http.Header{
		"none":               hdr(),
		"garbage range":      hdr("Content-Range", "garbage value"),
		"unknown total":      hdr("Content-Range", "bytes 0-9/*"),
		"non-numeric length": hdr("Content-Length", "lots"),
		"negative length":    hdr("Content-Length", "-5"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, int64(-1), FromHeaders(h).Length)
		})
	}
}

func TestSupportsRanges(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"bytes", true},
		{"Bytes", true},
		{"none, bytes", true},
		{" bytes ", true},
		{"none", false},
		{"", false},
		{"nobytes", false},
		{"bytes-ranges", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Metadata{AcceptRanges: tt.value}.SupportsRanges(), "Accept-Ranges: %q", tt.value)
	}
}

func TestApplyValidatorsSetsPreconditionHeaders(t *testing.T) {
	meta := Metadata{
		ETag:         `"xyz"`,
		LastModified: "Wed, 07 Nov 2025 12:00:00 GMT",
	}
	h := make(http.Header)
	meta.ApplyValidators(h)

	assert.Equal(t, `"xyz"`, h.Get("If-Match"))
	assert.Equal(t, "Wed, 07 Nov 2025 12:00:00 GMT", h.Get("If-Unmodified-Since"))
}

func TestApplyValidatorsEmptyDoesNothing(t *testing.T) {
	h := make(http.Header)
	Metadata{}.ApplyValidators(h)
	assert.Empty(t, h)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Metadata
		want bool
	}{
		{
			name: "equal both empty",
			want: true,
		},
		{
			name: "equal ETag and Last-Modified",
			a:    Metadata{ETag: "abc", LastModified: "time"},
			b:    Metadata{ETag: "abc", LastModified: "time"},
			want: true,
		},
		{
			name: "different ETag",
			a:    Metadata{ETag: "a"},
			b:    Metadata{ETag: "b"},
		},
		{
			name: "different Last-Modified",
			a:    Metadata{LastModified: "t1"},
			b:    Metadata{LastModified: "t2"},
		},
		{
			name: "different lengths",
			a:    Metadata{Length: 100},
			b:    Metadata{Length: 200},
		},
		{
			name: "unknown length is not compared",
			a:    Metadata{Length: -1},
			b:    Metadata{Length: 200},
			want: true,
		},
		{
			name: "one empty, one not (permissive match)",
			a:    Metadata{ETag: "x"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b), "a=%+v b=%+v", tt.a, tt.b)
		})
	}
}
