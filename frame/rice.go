package frame

import "math/bits"

// The residual coder is a two-level adaptive Golomb-Rice code. Level 0
// handles small residuals with a single 0 bit followed by k0 binary bits;
// everything else spills into level 1 as a run of 1 bits followed by k1
// binary bits. Each level keeps a running sum that drags its bit width k up
// or down as the signal statistics drift.
//
// ref: http://tausoft.org/wiki/True_Audio_Codec_Format

// riceInitK is the bit width both levels start a frame with.
const riceInitK = 10

// rice is the per-channel residual coder state.
type rice struct {
	sum [2]uint32
	k   [2]uint8
}

func (r *rice) init() {
	r.sum[0] = sumShift[riceInitK]
	r.sum[1] = sumShift[riceInitK]
	r.k[0] = riceInitK
	r.k[1] = riceInitK
}

// sumShift[k] bounds the running sum for bit width k. Entry 28 saturates,
// which caps k at 27 even though the state invariant only requires k < 32.
var sumShift = [29]uint32{
	0x00000000, 0x00000020, 0x00000040, 0x00000080,
	0x00000100, 0x00000200, 0x00000400, 0x00000800,
	0x00001000, 0x00002000, 0x00004000, 0x00008000,
	0x00010000, 0x00020000, 0x00040000, 0x00080000,
	0x00100000, 0x00200000, 0x00400000, 0x00800000,
	0x01000000, 0x02000000, 0x04000000, 0x08000000,
	0x10000000, 0x20000000, 0x40000000, 0x80000000,
	0xFFFFFFFF,
}

// adapt presents a code value to level lvl. The sum is updated first; the
// comparison then uses the pre-update k against the post-update sum. Both
// inequalities are strict, so a sum exactly on a bound leaves k alone.
func (r *rice) adapt(lvl int, v uint32) {
	s := r.sum[lvl] + v - r.sum[lvl]>>4
	r.sum[lvl] = s
	k := r.k[lvl]
	if s < sumShift[k] {
		r.k[lvl] = k - 1
	} else if s > sumShift[k+1] {
		r.k[lvl] = k + 1
	}
}

// lsmask returns a mask of the k least significant bits.
func lsmask(k uint8) uint32 {
	if k == 0 {
		return 0
	}
	return ^uint32(0) >> (32 - k)
}

// fold maps a signed residual onto the unsigned code domain: positive
// residuals to odd codes, the rest to even codes.
func fold(e int32) uint32 {
	if e > 0 {
		return uint32(e)<<1 - 1
	}
	return uint32(-e) << 1
}

// unfold is the inverse of fold.
func unfold(m uint32) int32 {
	if m&1 != 0 {
		return int32((m + 1) >> 1)
	}
	return -int32(m >> 1)
}

// trailingOnes returns the length of the run of 1 bits at the bottom of x.
func trailingOnes(x uint32) int {
	return bits.TrailingZeros32(^x)
}

// bitCache packs bits between the coder and the byte stream. Bits enter and
// leave low-first; whole bytes are drained to (encode) or refilled from
// (decode) the TTA stream, and every byte crossing that boundary is folded
// into the frame CRC. Its word/count pair is the entire suspension state of
// the coder, which is what makes the codec resumable at any byte boundary.
type bitCache struct {
	word  uint32
	count uint8
}
