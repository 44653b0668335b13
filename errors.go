/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProtocol is returned by Open when the resource lacks a declared
	// length or does not accept byte-range requests. It is fatal to the File.
	ErrProtocol = errors.New("httpio: protocol error")

	// ErrClosed is returned by every operation but Close on a closed File.
	ErrClosed = errors.New("httpio: I/O operation on closed resource")

	// ErrInvalidArgument is returned by Seek for an unknown whence or a
	// resulting offset outside [0, Size()].
	ErrInvalidArgument = errors.New("httpio: invalid argument")

	// ErrUnsupported is returned by Write. The resource is read-only.
	ErrUnsupported = errors.New("httpio: writing not supported on http resource")

	// ErrFetchLimit is returned by the limited line readers when the fetch
	// budget ran out before a line terminator was found.
	ErrFetchLimit = errors.New("httpio: fetch limit reached")

	// ErrResourceChanged is wrapped by a TransportError when a conditional
	// fetch is rejected because the remote resource changed.
	ErrResourceChanged = errors.New("httpio: remote resource changed")
)

// TransportError reports a failed probe or fetch.
type TransportError struct {
	Op         string // "probe" or "fetch"
	URL        string
	StatusCode int // zero if the request never got a response
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("httpio: %s %s returned %s: %v", e.Op, e.URL, e.Status, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("httpio: %s %s returned %s", e.Op, e.URL, e.Status)
	default:
		return fmt.Sprintf("httpio: %s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func statusError(op, url string, resp *http.Response) *TransportError {
	e := &TransportError{Op: op, URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	if resp.StatusCode == http.StatusPreconditionFailed {
		e.Err = ErrResourceChanged
	}
	return e
}

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
