// Package frame implements the TTA1 per-frame codec: the adaptive
// prediction filter, the two-level adaptive Rice entropy coder and the
// framed, CRC-protected bitstream.
//
// The codec is a resumable state machine. A caller describes a frame
// (channel count, sample depth, samples per channel) and then repeatedly
// hands the codec a PCM-side buffer of interleaved i32 samples and a
// TTA-side buffer of bytes. Each call consumes as much as both buffers
// allow and reports exact progress; the codec suspends cleanly at any byte
// boundary of the TTA stream and at sample-slot boundaries of the PCM
// stream, so buffers of any size — down to a single byte — produce the
// same bit stream.
//
// ref: http://tausoft.org/wiki/True_Audio_Codec_Format
package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/internal/crc32"
)

// MaxChannels is the highest channel count a Codec accepts.
const MaxChannels = 256

// Codec-level errors. Everything else that can go wrong while coding a
// frame belongs to the caller's contract, not to runtime conditions.
var (
	// ErrCRCMismatch reports a decoded frame whose stored trailer CRC does
	// not match the running register. The decoded PCM of the frame is still
	// delivered; the caller decides whether to surface or mask it.
	ErrCRCMismatch = errors.New("frame: trailer CRC mismatch")
	// ErrInvalidParameter reports an unsupported channel count or sample
	// depth at construction.
	ErrInvalidParameter = errors.New("frame: invalid parameter")
)

// Depth is the PCM sample depth in bytes per sample.
type Depth uint8

// Supported sample depths.
const (
	Depth8  Depth = 1 // unsigned 8-bit
	Depth16 Depth = 2 // signed 16-bit little-endian
	Depth24 Depth = 3 // signed 24-bit little-endian
)

// DepthFromBits returns the Depth for a bits-per-sample count.
func DepthFromBits(bits int) (Depth, error) {
	switch bits {
	case 8:
		return Depth8, nil
	case 16:
		return Depth16, nil
	case 24:
		return Depth24, nil
	}
	return 0, errors.Wrapf(ErrInvalidParameter, "%d bits per sample", bits)
}

// Bits returns the depth in bits per sample.
func (d Depth) Bits() int {
	return int(d) * 8
}

func (d Depth) valid() bool {
	return d >= Depth8 && d <= Depth24
}

// shift returns the adaptive filter shift for the depth.
func (d Depth) shift() uint8 {
	if d == Depth16 {
		return 9
	}
	return 10
}

// Codec lifecycle states.
type state uint8

const (
	stateFresh   state = iota // reset, per-channel state not yet initialised
	stateRun                  // coding sample slots
	stateTrailer              // cache flush + trailer CRC pending
	stateDone                 // frame complete
)

// Suspension points within a sample slot.
type phase uint8

const (
	phaseFill   phase = iota // encode: waiting for one slot of PCM input
	phaseUnary               // unary run in flight
	phaseBinary              // binary field in flight
	phaseFlush               // decode: waiting for room to deliver one slot
)

// channel bundles the per-channel codec state: the adaptive filter, the
// fixed predictor's previous sample and the Rice coder.
type channel struct {
	fl   filter
	rice rice
	prev int32
}

// A Codec holds the complete state of one frame coder. It is plain data:
// no allocation happens while coding, and a Codec may be reused for any
// number of frames via Reset. A Codec must not be used concurrently.
type Codec struct {
	nchan int
	depth Depth
	shift uint8
	fk    kernel

	ch   []channel
	slot []int32 // one interleaved sample slot staged between the two sides

	cache bitCache
	crc   uint32

	total int // interleaved samples in the current frame
	pos   int // interleaved samples fully coded
	cur   int // channel being coded within the current slot

	st    state
	phase phase

	unary    uint32 // encode: 1 bits left to emit; decode: run length so far
	binary   uint32 // encode: pending binary field; decode: code base
	kbits    uint8  // width of the pending binary field
	depth1   bool   // decode: sample spilled into the second Rice level
	trail    int    // trailer CRC bytes emitted / consumed
	crcbuf   [4]byte
	mismatch bool

	ni32Total   int
	nbytesTotal int
}

// Progress reports how far a call and its frame have come.
type Progress struct {
	// Interleaved i32 samples consumed (encode) or produced (decode) by
	// this call, and in total for the frame.
	NSamples      int
	NSamplesTotal int
	// TTA bytes produced (encode) or consumed (decode) by this call, and in
	// total for the frame.
	NBytes      int
	NBytesTotal int
	// CRC is the running register, or the finished frame CRC once the
	// trailer has been coded.
	CRC uint32
	// Finished reports that the frame trailer has been fully coded.
	Finished bool
}

// NewCodec returns a codec for frames of nchan channels at the given sample
// depth. The per-channel state is sized here and never grows.
func NewCodec(nchan int, depth Depth) (*Codec, error) {
	if nchan < 1 || nchan > MaxChannels {
		return nil, errors.Wrapf(ErrInvalidParameter, "channel count %d", nchan)
	}
	if !depth.valid() {
		return nil, errors.Wrapf(ErrInvalidParameter, "sample depth %d", depth)
	}
	c := &Codec{
		nchan: nchan,
		depth: depth,
		shift: depth.shift(),
		fk:    filterScalar,
		ch:    make([]channel, nchan),
		slot:  make([]int32, nchan),
		st:    stateDone,
	}
	return c, nil
}

// NChannels returns the channel count the codec was built for.
func (c *Codec) NChannels() int {
	return c.nchan
}

// Depth returns the sample depth the codec was built for.
func (c *Codec) Depth() Depth {
	return c.depth
}

// Reset prepares the codec for a new frame of n samples per channel. It
// must be called before the first Encode or Decode of every frame.
func (c *Codec) Reset(n int) {
	c.total = n * c.nchan
	c.st = stateFresh
	c.ni32Total = 0
	c.nbytesTotal = 0
}

// begin initialises the per-frame state on the first call after Reset.
func (c *Codec) begin() {
	for i := range c.ch {
		c.ch[i].fl.init()
		c.ch[i].rice.init()
		c.ch[i].prev = 0
	}
	c.cache = bitCache{}
	c.crc = crc32.Init
	c.pos = 0
	c.cur = 0
	c.trail = 0
	c.mismatch = false
	if c.total == 0 {
		c.st = stateTrailer
	} else {
		c.st = stateRun
	}
}

// Encode advances the frame, consuming interleaved samples from src and
// producing TTA bytes into dst. It stops when either buffer is exhausted or
// the frame trailer has been written, and reports exactly how much of each
// buffer it touched. PCM input is consumed in whole sample slots only: a src
// holding less than one slot of nchan samples is not consumed, so such a call
// can report zero progress even though dst has room.
func (c *Codec) Encode(dst []byte, src []int32) Progress {
	var r, w int
	if c.st == stateFresh {
		c.begin()
		c.phase = phaseFill
	}
loop:
	for c.st == stateRun {
		switch c.phase {
		case phaseFill:
			if len(src)-r < c.nchan {
				break loop
			}
			copy(c.slot, src[r:r+c.nchan])
			r += c.nchan
			if c.nchan > 1 {
				decorrelate(c.slot)
			}
			c.cur = 0
			c.nextResidual()
		case phaseUnary:
			var ok bool
			if w, ok = c.putUnary(dst, w); !ok {
				break loop
			}
			if c.kbits != 0 {
				c.phase = phaseBinary
			} else {
				c.sampleOut()
			}
		case phaseBinary:
			var ok bool
			if w, ok = c.putBinary(dst, w); !ok {
				break loop
			}
			c.sampleOut()
		}
	}
	if c.st == stateTrailer {
		w = c.encodeTrailer(dst, w)
	}
	return c.progress(r, w)
}

// nextResidual runs the current channel's sample through the fixed
// predictor, the adaptive filter and the Rice split, leaving the pending
// unary run and binary field in the coder state.
func (c *Codec) nextResidual() {
	ch := &c.ch[c.cur]
	v := c.slot[c.cur]
	p := v - predict1(ch.prev)
	ch.prev = v
	m := fold(c.fk(&ch.fl, c.shift, p, true))

	// Level 0 takes small codes whole; larger codes drop the level-0 range
	// and spill into a unary run at the level-1 width. Both levels adapt on
	// the value they were presented.
	kx := ch.rice.k[0]
	ch.rice.adapt(0, m)
	c.unary = 0
	if m >= uint32(1)<<kx {
		m -= uint32(1) << kx
		kx = ch.rice.k[1]
		ch.rice.adapt(1, m)
		c.unary = m>>kx + 1
	}
	c.kbits = kx
	c.binary = m & lsmask(kx)
	c.phase = phaseUnary
}

// sampleOut finishes the current channel on the encode side and advances to
// the next channel, slot or the frame trailer.
func (c *Codec) sampleOut() {
	c.cur++
	if c.cur < c.nchan {
		c.nextResidual()
		return
	}
	c.pos += c.nchan
	if c.pos == c.total {
		c.st = stateTrailer
		return
	}
	c.phase = phaseFill
}

// putUnary drains the pending unary run into dst via the cache, packing at
// most 23 one-bits between byte drains so the cache word cannot overflow.
// It reports false when dst fills before the run and its terminator are
// fully cached; the remainder stays in the coder state.
func (c *Codec) putUnary(dst []byte, w int) (int, bool) {
	for {
		for c.cache.count >= 8 {
			if w == len(dst) {
				return w, false
			}
			x := byte(c.cache.word)
			c.crc = crc32.Update(c.crc, x)
			dst[w] = x
			w++
			c.cache.word >>= 8
			c.cache.count -= 8
		}
		if c.unary > 23 {
			c.cache.word |= lsmask(23) << c.cache.count
			c.cache.count += 23
			c.unary -= 23
			continue
		}
		c.cache.word |= lsmask(uint8(c.unary)) << c.cache.count
		c.cache.count += uint8(c.unary) + 1 // the 0 terminator
		c.unary = 0
		return w, true
	}
}

// putBinary caches the pending binary field, draining whole bytes first.
func (c *Codec) putBinary(dst []byte, w int) (int, bool) {
	for c.cache.count >= 8 {
		if w == len(dst) {
			return w, false
		}
		x := byte(c.cache.word)
		c.crc = crc32.Update(c.crc, x)
		dst[w] = x
		w++
		c.cache.word >>= 8
		c.cache.count -= 8
	}
	c.cache.word |= c.binary << c.cache.count
	c.cache.count += c.kbits
	return w, true
}

// encodeTrailer flushes the cache and emits the 4-byte little-endian frame
// CRC. The flush bytes fold into the register; the CRC bytes do not.
func (c *Codec) encodeTrailer(dst []byte, w int) int {
	for c.cache.count != 0 {
		if w == len(dst) {
			return w
		}
		x := byte(c.cache.word)
		c.crc = crc32.Update(c.crc, x)
		dst[w] = x
		w++
		c.cache.word >>= 8
		if c.cache.count > 8 {
			c.cache.count -= 8
		} else {
			c.cache.count = 0
		}
	}
	for c.trail < 4 {
		if w == len(dst) {
			return w
		}
		dst[w] = byte(crc32.Final(c.crc) >> (8 * c.trail))
		w++
		c.trail++
	}
	c.st = stateDone
	return w
}

// Decode advances the frame, consuming TTA bytes from src and producing
// interleaved samples into dst. The progress contract matches Encode. A
// trailer CRC mismatch is reported once, by the call that completes the
// frame; the frame's PCM is delivered regardless.
func (c *Codec) Decode(dst []int32, src []byte) (Progress, error) {
	var r, w int
	if c.st == stateFresh {
		c.begin()
		if c.st == stateRun {
			c.cur = 0
			c.startSample()
		}
	}
loop:
	for c.st == stateRun {
		switch c.phase {
		case phaseUnary:
			var ok bool
			if r, ok = c.getUnary(src, r); !ok {
				break loop
			}
			ch := &c.ch[c.cur]
			m := uint32(0)
			kx := ch.rice.k[0]
			c.depth1 = false
			if c.unary != 0 {
				m = c.unary - 1
				kx = ch.rice.k[1]
				c.depth1 = true
			}
			c.binary = m
			c.kbits = kx
			if kx != 0 {
				c.phase = phaseBinary
			} else {
				c.sampleIn(m)
			}
		case phaseBinary:
			v, rr, ok := c.getBinary(src, r)
			r = rr
			if !ok {
				break loop
			}
			c.sampleIn(c.binary<<c.kbits + v)
		case phaseFlush:
			if len(dst)-w < c.nchan {
				break loop
			}
			copy(dst[w:], c.slot)
			w += c.nchan
			c.pos += c.nchan
			if c.pos == c.total {
				// Any pad bits of the final partial byte are discarded.
				c.cache = bitCache{}
				c.st = stateTrailer
			} else {
				c.cur = 0
				c.startSample()
			}
		}
	}
	var err error
	if c.st == stateTrailer {
		r = c.decodeTrailer(src, r)
		if c.st == stateDone && c.mismatch {
			err = ErrCRCMismatch
		}
	}
	return c.progress(w, r), err
}

func (c *Codec) startSample() {
	c.unary = 0
	c.phase = phaseUnary
}

// sampleIn finishes the current channel on the decode side: adapt the Rice
// levels, invert the filter and the fixed predictor, and stage the sample
// in the slot. A completed slot is un-decorrelated and handed to phaseFlush
// for delivery.
func (c *Codec) sampleIn(m uint32) {
	ch := &c.ch[c.cur]
	if c.depth1 {
		ch.rice.adapt(1, m)
		m += uint32(1) << ch.rice.k[0]
	}
	ch.rice.adapt(0, m)
	p := c.fk(&ch.fl, c.shift, unfold(m), false)
	v := p + predict1(ch.prev)
	ch.prev = v
	c.slot[c.cur] = v

	c.cur++
	if c.cur == c.nchan {
		if c.nchan > 1 {
			correlate(c.slot)
		}
		c.phase = phaseFlush
		return
	}
	c.startSample()
}

// getUnary accumulates the unary run from src, refilling the cache a byte
// at a time. It reports false when src runs out before the 0 terminator;
// the partial run stays in the coder state.
func (c *Codec) getUnary(src []byte, r int) (int, bool) {
	for {
		if c.cache.count == 0 {
			if r == len(src) {
				return r, false
			}
			x := src[r]
			r++
			c.crc = crc32.Update(c.crc, x)
			c.cache.word = uint32(x)
			c.cache.count = 8
		}
		t := trailingOnes(c.cache.word)
		if t >= int(c.cache.count) {
			c.unary += uint32(c.cache.count)
			c.cache = bitCache{}
			continue
		}
		c.unary += uint32(t)
		c.cache.word >>= uint(t) + 1
		c.cache.count -= uint8(t) + 1
		return r, true
	}
}

// getBinary refills the cache until the pending binary field is complete
// and returns it.
func (c *Codec) getBinary(src []byte, r int) (uint32, int, bool) {
	for c.cache.count < c.kbits {
		if r == len(src) {
			return 0, r, false
		}
		x := src[r]
		r++
		c.crc = crc32.Update(c.crc, x)
		c.cache.word |= uint32(x) << c.cache.count
		c.cache.count += 8
	}
	v := c.cache.word & lsmask(c.kbits)
	c.cache.word = c.cache.word >> c.kbits & lsmask(c.cache.count-c.kbits)
	c.cache.count -= c.kbits
	return v, r, true
}

// decodeTrailer consumes the 4-byte stored CRC and compares it against the
// running register.
func (c *Codec) decodeTrailer(src []byte, r int) int {
	for c.trail < 4 {
		if r == len(src) {
			return r
		}
		c.crcbuf[c.trail] = src[r]
		r++
		c.trail++
	}
	if binary.LittleEndian.Uint32(c.crcbuf[:]) != crc32.Final(c.crc) {
		c.mismatch = true
	}
	c.st = stateDone
	return r
}

func (c *Codec) progress(ni32, nbytes int) Progress {
	c.ni32Total += ni32
	c.nbytesTotal += nbytes
	crc := c.crc
	if c.st == stateDone {
		crc = crc32.Final(c.crc)
	}
	return Progress{
		NSamples:      ni32,
		NSamplesTotal: c.ni32Total,
		NBytes:        nbytes,
		NBytesTotal:   c.nbytesTotal,
		CRC:           crc,
		Finished:      c.st == stateDone,
	}
}
