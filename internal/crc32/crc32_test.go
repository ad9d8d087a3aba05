package crc32

import (
	"testing"

	"pgregory.net/rapid"
)

func TestChecksum(t *testing.T) {
	golden := []struct {
		buf  []byte
		want uint32
	}{
		// The empty buffer: init xor final-xor cancel out.
		{buf: nil, want: 0x00000000},
		// The standard check value of CRC-32 with this polynomial.
		{buf: []byte("123456789"), want: 0xCBF43926},
	}
	for _, g := range golden {
		if got := Checksum(g.buf); got != g.want {
			t.Errorf("result mismatch of Checksum(%q); expected 0x%08X, got 0x%08X", g.buf, g.want, got)
		}
	}
}

// Folding bytes one at a time through the streaming register matches the
// one-shot checksum.
func TestUpdateMatchesChecksum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buf := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "buf")
		crc := uint32(Init)
		for _, x := range buf {
			crc = Update(crc, x)
		}
		if got, want := Final(crc), Checksum(buf); got != want {
			t.Fatalf("streaming CRC 0x%08X differs from one-shot 0x%08X", got, want)
		}
	})
}
