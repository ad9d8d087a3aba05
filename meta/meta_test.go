package meta_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewkiz/tta/meta"
)

func TestHeaderRoundTrip(t *testing.T) {
	want := &meta.FileHeader{
		NChan:         2,
		BitsPerSample: 16,
		SampleRate:    44100,
		NSamples:      1234567,
	}
	buf := new(bytes.Buffer)
	require.NoError(t, want.Write(buf))
	require.Equal(t, meta.HeaderSize, buf.Len())

	got, err := meta.ParseHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHeaderCorrupt(t *testing.T) {
	hdr := &meta.FileHeader{NChan: 1, BitsPerSample: 8, SampleRate: 8000, NSamples: 100}
	buf := new(bytes.Buffer)
	require.NoError(t, hdr.Write(buf))

	// Flip a payload byte; the CRC check must reject it.
	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[6] ^= 0x01
	_, err := meta.ParseHeader(bytes.NewReader(corrupt))
	assert.ErrorContains(t, err, "CRC mismatch")

	// Wrong preamble.
	corrupt = append([]byte(nil), buf.Bytes()...)
	corrupt[0] = 'X'
	_, err = meta.ParseHeader(bytes.NewReader(corrupt))
	assert.ErrorContains(t, err, "invalid preamble")
}

func TestFrameLength(t *testing.T) {
	golden := []struct {
		rate uint32
		want int
	}{
		{rate: 1000, want: 1024},
		{rate: 8000, want: 8192},
		{rate: 22050, want: 23040},
		{rate: 44100, want: 46080},
		{rate: 48000, want: 49920},
		{rate: 96000, want: 100096},
	}
	for _, g := range golden {
		assert.Equal(t, g.want, meta.FrameLength(g.rate), "rate %d", g.rate)
	}
}

func TestNFrames(t *testing.T) {
	hdr := &meta.FileHeader{SampleRate: 1000, NSamples: 1024}
	assert.Equal(t, 1, hdr.NFrames())
	hdr.NSamples = 1025
	assert.Equal(t, 2, hdr.NFrames())
	hdr.NSamples = 0
	assert.Equal(t, 0, hdr.NFrames())
}

func TestSeekTableRoundTrip(t *testing.T) {
	want := &meta.SeekTable{Sizes: []uint32{100, 2000, 30}}
	buf := new(bytes.Buffer)
	require.NoError(t, want.Write(buf))
	require.Equal(t, int64(buf.Len()), want.Size())

	got, err := meta.ParseSeekTable(bytes.NewReader(buf.Bytes()), len(want.Sizes))
	require.NoError(t, err)
	assert.Equal(t, want.Sizes, got.Sizes)

	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[0] ^= 0x01
	_, err = meta.ParseSeekTable(bytes.NewReader(corrupt), len(want.Sizes))
	assert.ErrorContains(t, err, "CRC mismatch")
}

// apeTag builds a header-fronted APEv2 tag of n item bytes.
func apeTag(n int) []byte {
	buf := make([]byte, 32+n)
	copy(buf, "APETAGEX")
	binary.LittleEndian.PutUint32(buf[8:], 2000)      // version
	binary.LittleEndian.PutUint32(buf[12:], uint32(n)) // items + footer
	for i := 32; i < len(buf); i++ {
		buf[i] = byte(i)
	}
	return buf
}

// id3Tag builds an ID3v2.4 tag with n bytes of frame data.
func id3Tag(n int) []byte {
	buf := make([]byte, 10+n)
	copy(buf, "ID3")
	buf[3] = 4 // v2.4.0
	buf[6] = byte(n >> 21 & 0x7F)
	buf[7] = byte(n >> 14 & 0x7F)
	buf[8] = byte(n >> 7 & 0x7F)
	buf[9] = byte(n & 0x7F)
	return buf
}

func TestSkipTags(t *testing.T) {
	payload := []byte("TTA1 payload bytes")
	golden := []struct {
		name string
		tags []byte
	}{
		{name: "none", tags: nil},
		{name: "ape", tags: apeTag(100)},
		{name: "id3", tags: id3Tag(64)},
		{name: "ape+id3", tags: append(apeTag(33), id3Tag(200)...)},
		{name: "id3+ape", tags: append(id3Tag(10), apeTag(7)...)},
	}
	for _, g := range golden {
		t.Run(g.name, func(t *testing.T) {
			rs := bytes.NewReader(append(append([]byte(nil), g.tags...), payload...))
			require.NoError(t, meta.SkipTags(rs))
			rest := make([]byte, len(payload))
			_, err := rs.Read(rest)
			require.NoError(t, err)
			assert.Equal(t, payload, rest)
		})
	}
}

// A short stream that is neither tag is left untouched.
func TestSkipTagsShort(t *testing.T) {
	rs := bytes.NewReader([]byte("TT"))
	require.NoError(t, meta.SkipTags(rs))
	pos, err := rs.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
}
