/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"bytes"
	"context"
	"io"
	"iter"
)

// lineChunk is the scan step used when caching is disabled.
const lineChunk = 8 * 1024

// ReadLine reads from the cursor through the next '\n' (included) and advances
// the cursor past it. The last line may lack a terminator. At end of resource
// it returns nil, io.EOF.
func (f *File) ReadLine(ctx context.Context) ([]byte, error) {
	return f.ReadLineLimited(ctx, -1)
}

// ReadLineLimited is ReadLine spending at most maxFetches raw fetches in total.
// If the budget runs out before a terminator, it returns the bytes scanned so
// far with ErrFetchLimit; the cursor moves past them so a later call resumes.
func (f *File) ReadLineLimited(ctx context.Context, maxFetches int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLine(ctx, maxFetches)
}

func (f *File) readLine(ctx context.Context, maxFetches int) ([]byte, error) {
	if err := f.ensureOpen(ctx); err != nil {
		return nil, err
	}

	step := int64(lineChunk)
	if f.eng.cache != nil {
		step = f.eng.cache.SectorSize()
	}

	var line []byte
	off := f.cursor
	budget := maxFetches
	for off < f.meta.Length {
		want := min(step, f.meta.Length-off)
		var chunk []byte
		got, used, err := f.eng.span(ctx, off, want, budget, func(b []byte) {
			chunk = append(chunk, b...)
		})
		if err != nil {
			return nil, err
		}
		if budget >= 0 {
			budget = max(budget-used, 0)
		}

		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			line = append(line, chunk[:i+1]...)
			f.cursor = off + int64(i) + 1
			return line, nil
		}
		line = append(line, chunk...)
		off += got
		if got < want {
			f.cursor = off
			return line, ErrFetchLimit
		}
	}

	f.cursor = off
	if len(line) == 0 {
		return nil, io.EOF
	}
	return line, nil
}

// ReadLines reads every remaining line.
func (f *File) ReadLines(ctx context.Context) ([][]byte, error) {
	var lines [][]byte
	for line, err := range f.Lines(ctx) {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Lines iterates over the remaining lines from the cursor. Iteration stops at
// end of resource or after yielding the first error.
func (f *File) Lines(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			line, err := f.ReadLine(ctx)
			if err == io.EOF {
				return
			}
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}
