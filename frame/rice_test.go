package frame

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestFold(t *testing.T) {
	golden := []struct {
		e    int32
		want uint32
	}{
		{e: 0, want: 0},
		{e: 1, want: 1},
		{e: -1, want: 2},
		{e: 2, want: 3},
		{e: -2, want: 4},
		{e: 3, want: 5},
		{e: -3, want: 6},
		{e: 1 << 22, want: 1<<23 - 1},
		{e: -(1 << 22), want: 1 << 23},
	}
	for _, g := range golden {
		got := fold(g.e)
		if g.want != got {
			t.Errorf("result mismatch of fold(e=%d); expected %d, got %d", g.e, g.want, got)
			continue
		}
	}
}

// fold covers every int32 but the minimum, whose code -2e does not fit in 32
// bits.
func TestUnfoldFold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := rapid.Int32Range(math.MinInt32+1, math.MaxInt32).Draw(t, "e")
		if got := unfold(fold(e)); got != e {
			t.Fatalf("unfold(fold(%d)) = %d", e, got)
		}
	})
}

func TestLsmask(t *testing.T) {
	golden := []struct {
		k    uint8
		want uint32
	}{
		{k: 0, want: 0x00000000},
		{k: 1, want: 0x00000001},
		{k: 10, want: 0x000003FF},
		{k: 23, want: 0x007FFFFF},
		{k: 27, want: 0x07FFFFFF},
		{k: 31, want: 0x7FFFFFFF},
	}
	for _, g := range golden {
		if got := lsmask(g.k); got != g.want {
			t.Errorf("result mismatch of lsmask(k=%d); expected 0x%08X, got 0x%08X", g.k, g.want, got)
		}
	}
}

// The adaption rule must keep k within [0, 31] and the sums within
// [0, sumShift[28]] no matter what code values it is presented.
func TestAdaptBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var r rice
		r.init()
		n := rapid.IntRange(1, 4096).Draw(t, "n")
		for i := 0; i < n; i++ {
			v := rapid.Uint32().Draw(t, "v")
			r.adapt(0, v)
			r.adapt(1, v>>r.k[1])
			for lvl := 0; lvl < 2; lvl++ {
				if r.k[lvl] > 31 {
					t.Fatalf("k[%d] out of range: %d", lvl, r.k[lvl])
				}
			}
		}
	})
}

// Silence decays the running sum; k must walk down to 0 and stay there
// instead of wrapping. The sum itself bottoms out below 16, where the >>4
// leak term vanishes.
func TestAdaptSilence(t *testing.T) {
	var r rice
	r.init()
	for i := 0; i < 4096; i++ {
		r.adapt(0, 0)
	}
	if r.k[0] != 0 {
		t.Errorf("k[0] after silence; expected 0, got %d", r.k[0])
	}
	if r.sum[0] >= 16 {
		t.Errorf("sum[0] after silence; expected < 16, got %d", r.sum[0])
	}
}
