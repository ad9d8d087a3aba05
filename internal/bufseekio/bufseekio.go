// Package bufseekio implements a buffered io.ReadSeeker. Container parsing
// mixes many small reads (tag headers, the file header, seek table walks)
// with the occasional seek; a plain bufio.Reader would lose its buffer on
// every seek, and seeking the underlying file directly would invalidate the
// buffered bytes.
package bufseekio

import (
	"io"
)

const defaultSize = 4096

// A ReadSeeker buffers reads from an io.ReadSeeker while keeping Seek
// cheap: seeks that land inside the buffered window only move the read
// position.
type ReadSeeker struct {
	rs  io.ReadSeeker
	buf []byte
	pos int64 // absolute offset of buf[0]
	r   int   // read position within buf[:w]
	w   int   // valid bytes in buf
}

// New returns a buffered ReadSeeker with the default buffer size. If rs is
// already a *ReadSeeker with a buffer at least that large, it is returned as
// is.
func New(rs io.ReadSeeker) *ReadSeeker {
	return NewSize(rs, defaultSize)
}

// NewSize returns a buffered ReadSeeker whose buffer has at least the given
// size.
func NewSize(rs io.ReadSeeker, size int) *ReadSeeker {
	if b, ok := rs.(*ReadSeeker); ok && len(b.buf) >= size {
		return b
	}
	return &ReadSeeker{
		rs:  rs,
		buf: make([]byte, size),
	}
}

// Read reads data into p from the buffer, refilling it from the underlying
// reader at most once; n may be less than len(p).
func (b *ReadSeeker) Read(p []byte) (int, error) {
	if b.r == b.w {
		if len(p) >= len(b.buf) {
			// Large read with an empty buffer; bypass it.
			n, err := b.rs.Read(p)
			b.pos += int64(b.r) + int64(n)
			b.r = 0
			b.w = 0
			return n, err
		}
		b.pos += int64(b.w)
		b.r = 0
		n, err := b.rs.Read(b.buf)
		if n <= 0 {
			b.w = 0
			return 0, err
		}
		b.w = n
	}
	n := copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}

// Seek implements io.Seeker. A seek that stays within the buffered window
// does not touch the underlying reader.
func (b *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		if offset == 0 {
			return b.position(), nil
		}
		offset += b.position()
	case io.SeekEnd:
		// The stream length is unknown here; delegate.
		return b.reseek(offset, whence)
	}
	if offset >= b.pos && offset < b.pos+int64(b.w) {
		b.r = int(offset - b.pos)
		return offset, nil
	}
	return b.reseek(offset, io.SeekStart)
}

func (b *ReadSeeker) reseek(offset int64, whence int) (int64, error) {
	b.r = 0
	b.w = 0
	var err error
	b.pos, err = b.rs.Seek(offset, whence)
	return b.pos, err
}

// position returns the absolute read offset.
func (b *ReadSeeker) position() int64 {
	return b.pos + int64(b.r)
}
