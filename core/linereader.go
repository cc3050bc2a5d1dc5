package core

import (
	"bytes"
	"errors"
	"io"
)

const defaultLineBufferSize = 1024

// lineReader hands out at most one line per call from a non-blocking source.
// A line longer than size-1 bytes is split into chunks, and a partial line is
// returned as soon as the source has nothing more buffered.
type lineReader struct {
	src     Process
	chunk   []byte
	pending []byte
	max     int
	eof     bool
}

func newLineReader(src Process, size int) *lineReader {
	if size <= 1 {
		size = defaultLineBufferSize
	}
	return &lineReader{
		src:   src,
		chunk: make([]byte, size),
		max:   size - 1,
	}
}

// ReadLine returns the next line (including its newline when present),
// ErrWouldBlock when nothing is available, or io.EOF at end of stream.
func (r *lineReader) ReadLine() (string, error) {
	for {
		if line, ok := r.take(); ok {
			return line, nil
		}
		if r.eof {
			if len(r.pending) > 0 {
				return r.drainPending(len(r.pending)), nil
			}
			return "", io.EOF
		}
		n, err := r.src.ReadNonBlocking(r.chunk)
		if n > 0 {
			r.pending = append(r.pending, r.chunk[:n]...)
		}
		switch {
		case err == nil:
			if n == 0 {
				r.eof = true
			}
		case errors.Is(err, io.EOF):
			r.eof = true
		case errors.Is(err, ErrWouldBlock):
			if n > 0 {
				continue
			}
			if len(r.pending) > 0 {
				return r.drainPending(len(r.pending)), nil
			}
			return "", ErrWouldBlock
		default:
			if len(r.pending) > 0 {
				return r.drainPending(len(r.pending)), nil
			}
			return "", err
		}
	}
}

// take returns a complete line, or a max-sized chunk of a long one.
func (r *lineReader) take() (string, bool) {
	if len(r.pending) == 0 {
		return "", false
	}
	limit := len(r.pending)
	if limit > r.max {
		limit = r.max
	}
	if i := bytes.IndexByte(r.pending[:limit], '\n'); i >= 0 {
		return r.drainPending(i + 1), true
	}
	if len(r.pending) >= r.max {
		return r.drainPending(r.max), true
	}
	return "", false
}

func (r *lineReader) drainPending(n int) string {
	line := string(r.pending[:n])
	rest := copy(r.pending, r.pending[n:])
	r.pending = r.pending[:rest]
	return line
}
