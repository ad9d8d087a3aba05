package tta_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewkiz/tta"
	"github.com/mewkiz/tta/frame"
	"github.com/mewkiz/tta/meta"
)

// encodeTestFile writes a TTA1 file of the given samples and returns its
// path. A sample rate of 1000 keeps the frame length at 1024 samples, so a
// few thousand samples already span several frames.
func encodeTestFile(t *testing.T, hdr *meta.FileHeader, samples []int32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tta")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc, err := tta.NewEncoder(f, hdr)
	require.NoError(t, err)
	flen := enc.FrameLength()
	nchan := int(hdr.NChan)
	for len(samples) > 0 {
		n := flen * nchan
		if n > len(samples) {
			n = len(samples)
		}
		require.NoError(t, enc.WriteFrame(samples[:n]))
		samples = samples[n:]
	}
	require.NoError(t, enc.Close())
	return path
}

func decodeAll(t *testing.T, s *tta.Stream) []int32 {
	t.Helper()
	nchan := int(s.Header.NChan)
	buf := make([]int32, s.Header.FrameLength()*nchan)
	var out []int32
	for {
		n, err := s.NextFrame(buf)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
}

func rampSamples(n, nchan int) []int32 {
	samples := make([]int32, n*nchan)
	for i := range samples {
		samples[i] = int32((i*37)%4096) - 2048
	}
	return samples
}

func TestFileRoundTrip(t *testing.T) {
	golden := []struct {
		nchan    uint16
		bits     uint16
		nsamples int
	}{
		{nchan: 1, bits: 16, nsamples: 2500},
		{nchan: 2, bits: 16, nsamples: 3000},
		{nchan: 1, bits: 8, nsamples: 1024},
		{nchan: 2, bits: 24, nsamples: 1100},
		{nchan: 4, bits: 16, nsamples: 1030},
	}
	for _, g := range golden {
		hdr := &meta.FileHeader{
			NChan:         g.nchan,
			BitsPerSample: g.bits,
			SampleRate:    1000,
			NSamples:      uint32(g.nsamples),
		}
		want := rampSamples(g.nsamples, int(g.nchan))
		path := encodeTestFile(t, hdr, want)

		s, err := tta.Open(path)
		require.NoError(t, err)
		assert.Equal(t, hdr, s.Header)
		got := decodeAll(t, s)
		require.NoError(t, s.Close())
		assert.Equal(t, want, got, "%dch %dbit", g.nchan, g.bits)
	}
}

// A payload behind leading APEv2 or ID3v2 tags is consumed identically to
// the same payload without a tag.
func TestTagSkipEquivalence(t *testing.T) {
	hdr := &meta.FileHeader{NChan: 2, BitsPerSample: 16, SampleRate: 1000, NSamples: 2048}
	want := rampSamples(2048, 2)
	path := encodeTestFile(t, hdr, want)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	apeTag := make([]byte, 32+77)
	copy(apeTag, "APETAGEX")
	apeTag[12] = 77 // items + footer size, little-endian

	// ID3v2.4 header with 70 bytes of frame data; sync-safe length, most
	// significant byte first.
	id3Tag := make([]byte, 10+70)
	copy(id3Tag, "ID3")
	id3Tag[3] = 4
	id3Tag[9] = 70

	golden := []struct {
		name string
		tags []byte
	}{
		{name: "ape", tags: apeTag},
		{name: "id3", tags: id3Tag},
		{name: "id3+ape", tags: append(append([]byte(nil), id3Tag...), apeTag...)},
	}
	for _, g := range golden {
		t.Run(g.name, func(t *testing.T) {
			tagged := filepath.Join(t.TempDir(), "tagged.tta")
			require.NoError(t, os.WriteFile(tagged, append(append([]byte(nil), g.tags...), data...), 0644))

			s, err := tta.Open(tagged)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, hdr, s.Header)
			assert.Equal(t, want, decodeAll(t, s))
		})
	}
}

func TestStreamSeek(t *testing.T) {
	hdr := &meta.FileHeader{NChan: 2, BitsPerSample: 16, SampleRate: 1000, NSamples: 3000}
	want := rampSamples(3000, 2)
	path := encodeTestFile(t, hdr, want)

	s, err := tta.Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Land on the frame containing sample 2000; frames are 1024 samples.
	first, err := s.Seek(2000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), first)

	buf := make([]int32, s.Header.FrameLength()*2)
	n, err := s.NextFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, want[1024*2:2048*2], buf[:n])
}

// The header CRC of an encoded file checks out against the file bytes, and
// so does the seek table CRC; the recorded frame sizes tile the rest of the
// file.
func TestEncodedFileStructure(t *testing.T) {
	hdr := &meta.FileHeader{NChan: 1, BitsPerSample: 16, SampleRate: 1000, NSamples: 1500}
	path := encodeTestFile(t, hdr, rampSamples(1500, 1))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := meta.ParseHeader(f)
	require.NoError(t, err)
	assert.Equal(t, hdr, got)

	st, err := meta.ParseSeekTable(f, got.NFrames())
	require.NoError(t, err)
	require.Len(t, st.Sizes, 2)

	// The recorded sizes tile the rest of the file exactly.
	fi, err := f.Stat()
	require.NoError(t, err)
	var sum int64
	for _, size := range st.Sizes {
		sum += int64(size)
	}
	assert.Equal(t, fi.Size(), meta.HeaderSize+st.Size()+sum)
}

// EncodeFrame and DecodeFrame are usable stand-alone, the way the
// multi-threaded pipeline drives them.
func TestFrameHelpers(t *testing.T) {
	codec, err := frame.NewCodec(2, frame.Depth16)
	require.NoError(t, err)
	want := rampSamples(777, 2)
	data, err := tta.EncodeFrame(codec, want, nil)
	require.NoError(t, err)

	got := make([]int32, len(want))
	n, err := tta.DecodeFrame(codec, data, 777, got)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, want, got)

	// Truncated input is reported as such.
	_, err = tta.DecodeFrame(codec, data[:len(data)-5], 777, got)
	assert.ErrorContains(t, err, "truncated")
}

// Encoding the same stream twice produces identical bytes; the codec is
// deterministic and Reset fully re-arms it.
func TestEncodeDeterministic(t *testing.T) {
	codec, err := frame.NewCodec(1, frame.Depth16)
	require.NoError(t, err)
	samples := rampSamples(999, 1)
	a, err := tta.EncodeFrame(codec, samples, nil)
	require.NoError(t, err)
	b, err := tta.EncodeFrame(codec, samples, nil)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}
