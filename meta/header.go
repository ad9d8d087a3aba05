// Package meta contains functions for parsing and writing TTA1 container
// metadata: the file header, the per-frame seek table, and the audio tags
// that may precede the TTA1 preamble.
//
// ref: http://tausoft.org/wiki/True_Audio_Codec_Format
package meta

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/internal/crc32"
)

// Preamble is present at the beginning of each TTA1 file.
const Preamble = "TTA1"

// FormatPCM is the WAVE format code for integer PCM, the only payload
// format a TTA1 header can carry.
const FormatPCM = 0x0001

// HeaderSize is the encoded size of a FileHeader in bytes.
const HeaderSize = 22

// FrameTime is the duration of a full frame in seconds. The constant is
// part of the wire contract: frame boundaries derive from it.
const FrameTime = 1.04489795918367346939

// A FileHeader describes the PCM stream held by a TTA1 file.
//
// Encoded layout (all integers little-endian):
//
//	preamble       [4]byte // "TTA1"
//	format         uint16  // 0x0001 (PCM)
//	nchan          uint16
//	bits per sample uint16
//	sample rate    uint32
//	nsamples       uint32  // per channel
//	crc            uint32  // CRC-32 of the preceding 18 bytes
type FileHeader struct {
	// Number of channels.
	NChan uint16
	// Sample size in bits per sample.
	BitsPerSample uint16
	// Sample rate in Hz.
	SampleRate uint32
	// Total number of samples per channel.
	NSamples uint32
}

// ParseHeader reads and validates a TTA1 file header. The reader must be
// positioned at the TTA1 preamble; use SkipTags first if the file may carry
// leading tags.
func ParseHeader(r io.Reader) (*FileHeader, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, errors.WithStack(err)
	}
	if string(buf[:4]) != Preamble {
		return nil, errors.Errorf("meta.ParseHeader: invalid preamble; expected %q, got %q", Preamble, buf[:4])
	}
	crc := binary.LittleEndian.Uint32(buf[18:])
	if got := crc32.Checksum(buf[:18]); got != crc {
		return nil, errors.Errorf("meta.ParseHeader: header CRC mismatch; expected 0x%08X, got 0x%08X", crc, got)
	}
	if format := binary.LittleEndian.Uint16(buf[4:]); format != FormatPCM {
		return nil, errors.Errorf("meta.ParseHeader: unsupported data format %d", format)
	}
	hdr := &FileHeader{
		NChan:         binary.LittleEndian.Uint16(buf[6:]),
		BitsPerSample: binary.LittleEndian.Uint16(buf[8:]),
		SampleRate:    binary.LittleEndian.Uint32(buf[10:]),
		NSamples:      binary.LittleEndian.Uint32(buf[14:]),
	}
	return hdr, nil
}

// Write encodes the header, including its CRC, to w.
func (hdr *FileHeader) Write(w io.Writer) error {
	var buf [HeaderSize]byte
	copy(buf[:4], Preamble)
	binary.LittleEndian.PutUint16(buf[4:], FormatPCM)
	binary.LittleEndian.PutUint16(buf[6:], hdr.NChan)
	binary.LittleEndian.PutUint16(buf[8:], hdr.BitsPerSample)
	binary.LittleEndian.PutUint32(buf[10:], hdr.SampleRate)
	binary.LittleEndian.PutUint32(buf[14:], hdr.NSamples)
	binary.LittleEndian.PutUint32(buf[18:], crc32.Checksum(buf[:18]))
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// FrameLength returns the number of samples per channel of a full frame at
// the given sample rate.
func FrameLength(rate uint32) int {
	return int(float64(rate)*FrameTime/256) * 256
}

// FrameLength returns the samples per channel of a full frame of the file.
func (hdr *FileHeader) FrameLength() int {
	return FrameLength(hdr.SampleRate)
}

// NFrames returns the number of frames in the file; the final frame is
// short unless the sample count is an exact multiple of the frame length.
func (hdr *FileHeader) NFrames() int {
	flen := hdr.FrameLength()
	if flen == 0 {
		return 0
	}
	return (int(hdr.NSamples) + flen - 1) / flen
}
