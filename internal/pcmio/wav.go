package pcmio

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// wavReader reads RIFF/WAVE through go-audio. Both plain PCM and the
// Extensible subformat decode through the same path; go-audio resolves the
// format fields either way.
type wavReader struct {
	dec *wav.Decoder
	fmt Format
	buf *audio.IntBuffer
}

func newWAVReader(rs io.ReadSeeker) (*wavReader, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, errors.New("pcmio: invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.WithStack(err)
	}
	blockAlign := int(dec.NumChans) * int(dec.BitDepth) / 8
	nsamples := 0
	if blockAlign > 0 {
		nsamples = int(dec.PCMLen()) / blockAlign
	}
	r := &wavReader{
		dec: dec,
		fmt: Format{
			NChan:         int(dec.NumChans),
			BitsPerSample: int(dec.BitDepth),
			SampleRate:    int(dec.SampleRate),
			NSamples:      nsamples,
		},
	}
	return r, nil
}

func (r *wavReader) Format() Format {
	return r.fmt
}

func (r *wavReader) ReadSamples(dst []int32) (int, error) {
	if r.buf == nil || len(r.buf.Data) != len(dst) {
		r.buf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: r.fmt.NChan,
				SampleRate:  r.fmt.SampleRate,
			},
			Data:           make([]int, len(dst)),
			SourceBitDepth: r.fmt.BitsPerSample,
		}
	}
	n, err := r.dec.PCMBuffer(r.buf)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = int32(r.buf.Data[i])
	}
	return n, nil
}

// wavWriter writes RIFF/WAVE through go-audio; the encoder patches the
// header sizes on Close.
type wavWriter struct {
	enc *wav.Encoder
	fmt Format
	buf *audio.IntBuffer
}

// NewWAVWriter returns a writer emitting a RIFF/WAVE file.
func NewWAVWriter(ws io.WriteSeeker, f Format) Writer {
	return &wavWriter{
		enc: wav.NewEncoder(ws, f.SampleRate, f.BitsPerSample, f.NChan, 1),
		fmt: f,
	}
}

func (w *wavWriter) WriteSamples(src []int32) error {
	if w.buf == nil || len(w.buf.Data) != len(src) {
		w.buf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: w.fmt.NChan,
				SampleRate:  w.fmt.SampleRate,
			},
			Data:           make([]int, len(src)),
			SourceBitDepth: w.fmt.BitsPerSample,
		}
	}
	for i, v := range src {
		w.buf.Data[i] = int(v)
	}
	return errors.WithStack(w.enc.Write(w.buf))
}

func (w *wavWriter) Close() error {
	return errors.WithStack(w.enc.Close())
}
