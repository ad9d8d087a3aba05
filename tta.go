// Package tta provides access to TTA1 [1] (True Audio) lossless audio
// files.
//
// The basic structure of a TTA1 stream is:
//   - Zero or more APEv2 or ID3v2 tags.
//   - The 22-byte TTA1 file header.
//   - The seek table; one compressed byte length per frame plus a CRC.
//   - The audio frames.
//
// [1]: http://tausoft.org/wiki/True_Audio_Codec_Format
package tta

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/frame"
	"github.com/mewkiz/tta/internal/bufseekio"
	"github.com/mewkiz/tta/meta"
)

// A Stream is a TTA1 bitstream, decoded one frame at a time.
type Stream struct {
	// File header.
	Header *meta.FileHeader
	// Per-frame compressed byte lengths.
	SeekTable *meta.SeekTable

	r       io.ReadSeeker
	c       io.Closer // underlying file of Open, if any
	dataOff int64     // offset of the first audio frame
	codec   *frame.Codec
	flen    int // samples per channel of a full frame
	fidx    int // next frame to decode
	buf     []byte
}

// Open opens the provided file and returns a TTA1 stream positioned at its
// first audio frame. Call Close when done with the stream.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.c = f
	return s, nil
}

// New reads from the provided io.ReadSeeker and returns a TTA1 stream
// positioned at its first audio frame. Leading APEv2 and ID3v2 tags are
// skipped; the file header and seek table are validated against their CRCs.
func New(r io.ReadSeeker) (*Stream, error) {
	br := bufseekio.New(r)
	if err := meta.SkipTags(br); err != nil {
		return nil, err
	}
	hdr, err := meta.ParseHeader(br)
	if err != nil {
		return nil, err
	}
	st, err := meta.ParseSeekTable(br, hdr.NFrames())
	if err != nil {
		return nil, err
	}
	depth, err := frame.DepthFromBits(int(hdr.BitsPerSample))
	if err != nil {
		return nil, err
	}
	codec, err := frame.NewCodec(int(hdr.NChan), depth)
	if err != nil {
		return nil, err
	}
	dataOff, err := br.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s := &Stream{
		Header:    hdr,
		SeekTable: st,
		r:         br,
		dataOff:   dataOff,
		codec:     codec,
		flen:      hdr.FrameLength(),
	}
	return s, nil
}

// Close closes the underlying file of the stream, if opened through Open.
func (s *Stream) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// FrameSamples returns the samples per channel of frame n.
func (s *Stream) FrameSamples(n int) int {
	if n < 0 || n >= len(s.SeekTable.Sizes) {
		return 0
	}
	if rem := int(s.Header.NSamples) - n*s.flen; rem < s.flen {
		return rem
	}
	return s.flen
}

// NextFrame decodes the next audio frame into dst, interleaved by channel,
// and returns the number of i32 samples produced. dst must hold at least
// Header.FrameLength()*NChan samples. NextFrame returns io.EOF once all frames
// have been decoded.
//
// A trailer CRC mismatch is returned as frame.ErrCRCMismatch together with
// the frame's decoded samples; callers decide whether to surface or mask
// it.
func (s *Stream) NextFrame(dst []int32) (int, error) {
	data, nsamples, err := s.NextRawFrame(s.buf[:0])
	if err != nil {
		return 0, err
	}
	s.buf = data
	return DecodeFrame(s.codec, data, nsamples, dst)
}

// NextRawFrame reads the next frame's compressed bytes without decoding
// them, appending to buf, and returns the bytes together with the frame's
// samples per channel. It returns io.EOF once all frames have been read.
// Callers decode the bytes with DecodeFrame, possibly on another goroutine.
func (s *Stream) NextRawFrame(buf []byte) ([]byte, int, error) {
	if s.fidx >= len(s.SeekTable.Sizes) {
		return nil, 0, io.EOF
	}
	nsamples := s.FrameSamples(s.fidx)
	size := int(s.SeekTable.Sizes[s.fidx])
	start := len(buf)
	if cap(buf) < start+size {
		grown := make([]byte, start, start+size)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:start+size]
	if _, err := io.ReadFull(s.r, buf[start:]); err != nil {
		return nil, 0, errors.WithStack(err)
	}
	s.fidx++
	return buf, nsamples, nil
}

// Seek positions the stream at the frame containing the given sample
// number and returns the first sample number of that frame.
func (s *Stream) Seek(sample uint32) (uint32, error) {
	n := int(sample) / s.flen
	if n >= len(s.SeekTable.Sizes) {
		n = len(s.SeekTable.Sizes) - 1
	}
	if n < 0 {
		n = 0
	}
	off := s.dataOff
	for _, size := range s.SeekTable.Sizes[:n] {
		off += int64(size)
	}
	if _, err := s.r.Seek(off, io.SeekStart); err != nil {
		return 0, errors.WithStack(err)
	}
	s.fidx = n
	return uint32(n * s.flen), nil
}
