package httpio

import (
	"io"
)

// API contract compile-time checks.
var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.ReaderAt       = (*File)(nil)
	_ io.Writer         = (*File)(nil)
	_ Transport         = (*HTTPTransport)(nil)
	_ io.Closer         = (*HTTPTransport)(nil)
	_ SectorStore       = (*MemorySectors)(nil)
	_ SectorStore       = (*MmapSectors)(nil)
	_ io.Closer         = (*MmapSectors)(nil)
	_ Metrics           = noopMetrics{}
)
