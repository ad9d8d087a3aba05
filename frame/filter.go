package frame

// filterOrder is the number of taps in the adaptive filter.
const filterOrder = 8

// filter is the per-channel adaptive prediction filter: an 8-tap sign-LMS
// predictor over a residue history, adapted by the sign of the previous
// error.
type filter struct {
	a   [filterOrder]int32 // predictor weights
	m   [filterOrder]int32 // adaption deltas
	b   [filterOrder]int32 // residue history
	err int32              // previous full error
}

func (f *filter) init() {
	*f = filter{}
}

// kernel advances the filter by one sample and returns its output: the
// residual when encoding, the reconstructed value when decoding. The kernel
// is selected at codec construction so that a vectorized variant can slot in
// without touching the state machine; any replacement must be bit-identical
// to filterScalar.
type kernel func(f *filter, shift uint8, v int32, enc bool) int32

// filterScalar is the portable kernel.
func filterScalar(f *filter, shift uint8, v int32, enc bool) int32 {
	// Adapt the weights by the sign of the previous error.
	if f.err < 0 {
		for i := range f.a {
			f.a[i] -= f.m[i]
		}
	} else if f.err > 0 {
		for i := range f.a {
			f.a[i] += f.m[i]
		}
	}

	round := int32(1) << (shift - 1)
	for i := range f.a {
		round += f.a[i] * f.b[i]
	}

	// hist is the pre-filter sample, which both sides know: the input when
	// encoding, the just-reconstructed output when decoding. Feeding it to
	// the histories keeps the two state machines in lockstep.
	var out, hist int32
	if enc {
		out = v - round>>shift
		f.err = out
		hist = v
	} else {
		out = v + round>>shift
		f.err = v
		hist = out
	}

	// Shift the histories one lane. The four high delta lanes classify the
	// sign of the residue history with magnitudes {1, 2, 2, 4}; the four
	// high residue lanes hold successive differences of the sample.
	b4, b5, b6, b7 := f.b[4], f.b[5], f.b[6], f.b[7]

	f.m[0], f.m[1], f.m[2], f.m[3] = f.m[1], f.m[2], f.m[3], f.m[4]
	f.m[4] = f.b[4]>>30 | 1
	f.m[5] = (f.b[5]>>30 | 1) << 1
	f.m[6] = (f.b[6]>>30 | 1) << 1
	f.m[7] = (f.b[7]>>30 | 1) << 2

	f.b[0], f.b[1], f.b[2], f.b[3] = f.b[1], f.b[2], f.b[3], b4
	f.b[4] = hist - b5 - b6 - b7
	f.b[5] = hist - b6 - b7
	f.b[6] = hist - b7
	f.b[7] = hist

	return out
}
