package pcmio

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/frame"
)

// rawReader reads headerless PCM with a caller-supplied format.
type rawReader struct {
	r     io.Reader
	fmt   Format
	depth frame.Depth
	buf   []byte
}

func newRawReader(r io.Reader, f Format) *rawReader {
	depth, _ := frame.DepthFromBits(f.BitsPerSample)
	return &rawReader{r: r, fmt: f, depth: depth}
}

func (r *rawReader) Format() Format {
	return r.fmt
}

func (r *rawReader) ReadSamples(dst []int32) (int, error) {
	need := len(dst) * int(r.depth)
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	buf := r.buf[:need]
	n, err := io.ReadFull(r.r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, errors.WithStack(err)
	}
	nsamples := n / int(r.depth)
	if nsamples == 0 {
		return 0, io.EOF
	}
	frame.ReadPCM(dst[:nsamples], buf, r.depth)
	return nsamples, nil
}

// rawWriter writes headerless PCM.
type rawWriter struct {
	w     io.Writer
	depth frame.Depth
	buf   []byte
}

// NewRawWriter returns a writer emitting headerless PCM at the given depth.
func NewRawWriter(w io.Writer, bits int) (Writer, error) {
	depth, err := frame.DepthFromBits(bits)
	if err != nil {
		return nil, err
	}
	return &rawWriter{w: w, depth: depth}, nil
}

func (w *rawWriter) WriteSamples(src []int32) error {
	need := len(src) * int(w.depth)
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]
	frame.WritePCM(buf, src, w.depth)
	_, err := w.w.Write(buf)
	return errors.WithStack(err)
}

func (w *rawWriter) Close() error {
	return nil
}
