package tta

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/frame"
	"github.com/mewkiz/tta/meta"
)

// An Encoder writes a TTA1 stream. The file header is written up front and
// space for the seek table is reserved after it — the frame count is known
// from the header's sample count — so the audio frames can stream straight
// through; Close back-patches the seek table once every frame size is
// known.
type Encoder struct {
	// File header of the stream being written.
	Header *meta.FileHeader

	w       io.WriteSeeker
	codec   *frame.Codec
	flen    int
	sizes   []uint32
	nframes int
	left    int // samples per channel still to be written
	buf     []byte
}

// NewEncoder writes the header of a new TTA1 stream to w and returns an
// encoder expecting the stream's audio frames.
func NewEncoder(w io.WriteSeeker, hdr *meta.FileHeader) (*Encoder, error) {
	depth, err := frame.DepthFromBits(int(hdr.BitsPerSample))
	if err != nil {
		return nil, err
	}
	codec, err := frame.NewCodec(int(hdr.NChan), depth)
	if err != nil {
		return nil, err
	}
	if err := hdr.Write(w); err != nil {
		return nil, err
	}
	nframes := hdr.NFrames()
	// Reserve the seek table region; it is rewritten on Close.
	if _, err := w.Seek(meta.EncodedSeekTableSize(nframes), io.SeekCurrent); err != nil {
		return nil, errors.WithStack(err)
	}
	enc := &Encoder{
		Header:  hdr,
		w:       w,
		codec:   codec,
		flen:    hdr.FrameLength(),
		sizes:   make([]uint32, 0, nframes),
		nframes: nframes,
		left:    int(hdr.NSamples),
	}
	return enc, nil
}

// FrameLength returns the samples per channel of a full frame.
func (enc *Encoder) FrameLength() int {
	return enc.flen
}

// WriteFrame encodes one frame of interleaved samples. Every frame but the
// last must carry FrameLength() samples per channel; the last carries the
// remainder.
func (enc *Encoder) WriteFrame(samples []int32) error {
	nsamples := enc.flen
	if enc.left < nsamples {
		nsamples = enc.left
	}
	nchan := int(enc.Header.NChan)
	if len(samples) != nsamples*nchan {
		return errors.Errorf("tta.Encoder.WriteFrame: frame %d expects %d samples, got %d", len(enc.sizes), nsamples*nchan, len(samples))
	}
	data, err := EncodeFrame(enc.codec, samples, enc.buf[:0])
	if err != nil {
		return err
	}
	enc.buf = data
	return enc.WriteEncodedFrame(data, nsamples)
}

// WriteEncodedFrame appends an already encoded frame of nsamples samples
// per channel to the stream. It is the write half of WriteFrame, split out
// so that frames compressed on other goroutines can be stitched in order.
func (enc *Encoder) WriteEncodedFrame(data []byte, nsamples int) error {
	if len(enc.sizes) == enc.nframes {
		return errors.Errorf("tta.Encoder: all %d frames already written", enc.nframes)
	}
	if _, err := enc.w.Write(data); err != nil {
		return errors.WithStack(err)
	}
	enc.sizes = append(enc.sizes, uint32(len(data)))
	enc.left -= nsamples
	return nil
}

// EncodeFrame encodes one frame of interleaved samples with codec and
// appends the frame's bytes to buf. The codec is reset for the frame; the
// sample count must be a multiple of the codec's channel count.
func EncodeFrame(codec *frame.Codec, samples []int32, buf []byte) ([]byte, error) {
	nchan := codec.NChannels()
	if len(samples)%nchan != 0 {
		return buf, errors.Errorf("tta.EncodeFrame: sample count %d not a multiple of %d channels", len(samples), nchan)
	}
	codec.Reset(len(samples) / nchan)
	start := len(buf)
	if need := start + len(samples)*int(codec.Depth()) + len(samples)/2 + 64; cap(buf) < need {
		grown := make([]byte, len(buf), need)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:cap(buf)]
	total := start
	src := samples
	for {
		p := codec.Encode(buf[total:], src)
		src = src[p.NSamples:]
		total += p.NBytes
		if p.Finished {
			return buf[:total], nil
		}
		// The frame compressed larger than the estimate; grow and resume.
		grown := make([]byte, 2*len(buf))
		copy(grown, buf[:total])
		buf = grown
	}
}

// DecodeFrame decodes one frame of nsamples samples per channel from data
// into dst and returns the number of interleaved samples produced. A
// trailer CRC mismatch is returned as frame.ErrCRCMismatch alongside the
// decoded samples.
func DecodeFrame(codec *frame.Codec, data []byte, nsamples int, dst []int32) (int, error) {
	codec.Reset(nsamples)
	p, err := codec.Decode(dst, data)
	if !p.Finished {
		return p.NSamplesTotal, errors.Errorf("tta.DecodeFrame: frame truncated; %d of %d bytes decoded", p.NBytesTotal, len(data))
	}
	if p.NBytesTotal != len(data) {
		return p.NSamplesTotal, errors.Errorf("tta.DecodeFrame: frame size mismatch; expected %d bytes, got %d", len(data), p.NBytesTotal)
	}
	return p.NSamplesTotal, err
}

// Close back-patches the seek table and leaves w positioned at the end of
// the stream. It does not close w.
func (enc *Encoder) Close() error {
	if len(enc.sizes) != enc.nframes {
		return errors.Errorf("tta.Encoder.Close: %d of %d frames written", len(enc.sizes), enc.nframes)
	}
	if _, err := enc.w.Seek(meta.HeaderSize, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	st := &meta.SeekTable{Sizes: enc.sizes}
	if err := st.Write(enc.w); err != nil {
		return err
	}
	end := meta.HeaderSize + st.Size()
	for _, size := range enc.sizes {
		end += int64(size)
	}
	if _, err := enc.w.Seek(end, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
