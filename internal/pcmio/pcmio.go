// Package pcmio reads and writes the PCM containers the command-line
// front-end speaks: raw PCM, Microsoft RIFF/WAVE (PCM and Extensible) and
// Sony Wave64. Samples cross the package boundary as interleaved i32, the
// native representation of the frame codec.
package pcmio

import (
	"io"

	"github.com/pkg/errors"
)

// A Format describes a PCM stream.
type Format struct {
	// Number of channels.
	NChan int
	// Sample size in bits per sample; 8, 16 or 24.
	BitsPerSample int
	// Sample rate in Hz.
	SampleRate int
	// Total number of samples per channel; 0 when the container does not
	// state it (raw streams of unknown length).
	NSamples int
}

// A Reader produces interleaved samples from a PCM container.
type Reader interface {
	// Format describes the stream being read.
	Format() Format
	// ReadSamples reads up to len(dst) interleaved samples into dst. It
	// returns io.EOF when the stream is exhausted.
	ReadSamples(dst []int32) (int, error)
}

// A Writer consumes interleaved samples into a PCM container. Close
// finalises the container header where the format requires it.
type Writer interface {
	WriteSamples(src []int32) error
	Close() error
}

// NewReader sniffs the container format of rs and returns a reader for it.
// raw supplies the stream description for headerless PCM; a nil raw rejects
// unrecognised containers.
func NewReader(rs io.ReadSeeker, raw *Format) (Reader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(rs, magic[:]); err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, errors.WithStack(err)
	}
	switch string(magic[:]) {
	case "RIFF":
		return newWAVReader(rs)
	case "riff":
		return newW64Reader(rs)
	}
	if raw != nil {
		return newRawReader(rs, *raw), nil
	}
	return nil, errors.Errorf("pcmio.NewReader: unrecognised PCM container %q", magic)
}
