package pcmio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/frame"
)

// Sony Wave64 is RIFF with 16-byte GUID chunk identifiers and 64-bit chunk
// sizes; chunk sizes include their own 24-byte header and chunks are padded
// to 8-byte alignment.
//
// ref: https://web.archive.org/web/20081031101317/http://www.vcs.de/fileadmin/user_upload/MBS/PDF/Whitepaper/Informations_about_Sony_Wave64.pdf
var (
	guidRIFF = []byte{'r', 'i', 'f', 'f', 0x2E, 0x91, 0xCF, 0x11, 0xA5, 0xD6, 0x28, 0xDB, 0x04, 0xC1, 0x00, 0x00}
	guidWAVE = []byte{'w', 'a', 'v', 'e', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	guidFmt  = []byte{'f', 'm', 't', ' ', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	guidData = []byte{'d', 'a', 't', 'a', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
)

const (
	w64HeaderSize      = 16 + 8 + 16 // riff GUID + size + wave GUID
	w64ChunkHeaderSize = 16 + 8
	wavFormatPCM        = 0x0001
	wavFormatExtensible = 0xFFFE
)

func w64Align(n int64) int64 {
	return (n + 7) &^ 7
}

// w64Reader reads the PCM stream of a Wave64 file.
type w64Reader struct {
	r     io.Reader
	fmt   Format
	depth frame.Depth
	left  int64 // data bytes not yet consumed
	buf   []byte
}

func newW64Reader(rs io.ReadSeeker) (*w64Reader, error) {
	var hdr [w64HeaderSize]byte
	if _, err := io.ReadFull(rs, hdr[:]); err != nil {
		return nil, errors.WithStack(err)
	}
	if !bytes.Equal(hdr[:16], guidRIFF) || !bytes.Equal(hdr[24:40], guidWAVE) {
		return nil, errors.New("pcmio: invalid Wave64 file")
	}

	r := &w64Reader{r: rs}
	var haveFmt bool
	for {
		var ch [w64ChunkHeaderSize]byte
		if _, err := io.ReadFull(rs, ch[:]); err != nil {
			return nil, errors.WithStack(err)
		}
		size := int64(binary.LittleEndian.Uint64(ch[16:]))
		if size < w64ChunkHeaderSize {
			return nil, errors.Errorf("pcmio: malformed Wave64 chunk size %d", size)
		}
		body := size - w64ChunkHeaderSize
		switch {
		case bytes.Equal(ch[:16], guidFmt):
			if err := r.parseFmt(rs, body); err != nil {
				return nil, err
			}
			haveFmt = true
		case bytes.Equal(ch[:16], guidData):
			if !haveFmt {
				return nil, errors.New("pcmio: Wave64 data chunk before fmt chunk")
			}
			r.left = body
			blockAlign := int64(r.fmt.NChan) * int64(r.depth)
			r.fmt.NSamples = int(body / blockAlign)
			return r, nil
		default:
			if _, err := rs.Seek(w64Align(body), io.SeekCurrent); err != nil {
				return nil, errors.WithStack(err)
			}
		}
	}
}

func (r *w64Reader) parseFmt(rs io.ReadSeeker, body int64) error {
	buf := make([]byte, body)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return errors.WithStack(err)
	}
	if pad := w64Align(body) - body; pad != 0 {
		if _, err := rs.Seek(pad, io.SeekCurrent); err != nil {
			return errors.WithStack(err)
		}
	}
	if len(buf) < 16 {
		return errors.New("pcmio: short Wave64 fmt chunk")
	}
	code := binary.LittleEndian.Uint16(buf)
	if code == wavFormatExtensible {
		// The real format code leads the SubFormat GUID.
		if len(buf) < 24+16 {
			return errors.New("pcmio: short WAVE_FORMAT_EXTENSIBLE fmt chunk")
		}
		code = binary.LittleEndian.Uint16(buf[24:])
	}
	if code != wavFormatPCM {
		return errors.Errorf("pcmio: unsupported Wave64 format code %d", code)
	}
	r.fmt.NChan = int(binary.LittleEndian.Uint16(buf[2:]))
	r.fmt.SampleRate = int(binary.LittleEndian.Uint32(buf[4:]))
	r.fmt.BitsPerSample = int(binary.LittleEndian.Uint16(buf[14:]))
	depth, err := frame.DepthFromBits(r.fmt.BitsPerSample)
	if err != nil {
		return err
	}
	r.depth = depth
	return nil
}

func (r *w64Reader) Format() Format {
	return r.fmt
}

func (r *w64Reader) ReadSamples(dst []int32) (int, error) {
	need := int64(len(dst)) * int64(r.depth)
	if need > r.left {
		need = r.left
	}
	nsamples := int(need) / int(r.depth)
	if nsamples == 0 {
		return 0, io.EOF
	}
	need = int64(nsamples) * int64(r.depth)
	if cap(r.buf) < int(need) {
		r.buf = make([]byte, need)
	}
	buf := r.buf[:need]
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return 0, errors.WithStack(err)
	}
	r.left -= need
	frame.ReadPCM(dst[:nsamples], buf, r.depth)
	return nsamples, nil
}

// w64Writer writes a Wave64 file, patching the riff and data chunk sizes on
// Close.
type w64Writer struct {
	ws    io.WriteSeeker
	fmt   Format
	depth frame.Depth
	data  int64 // PCM bytes written
	buf   []byte
}

// NewW64Writer writes the Wave64 headers to ws and returns a writer for the
// PCM stream.
func NewW64Writer(ws io.WriteSeeker, f Format) (Writer, error) {
	depth, err := frame.DepthFromBits(f.BitsPerSample)
	if err != nil {
		return nil, err
	}
	w := &w64Writer{ws: ws, fmt: f, depth: depth}
	if err := w.writeHeaders(0); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *w64Writer) writeHeaders(data int64) error {
	const fmtBody = 16
	fmtChunk := w64Align(w64ChunkHeaderSize + fmtBody)
	riffSize := w64HeaderSize + fmtChunk + w64ChunkHeaderSize + data

	buf := make([]byte, w64HeaderSize+fmtChunk+w64ChunkHeaderSize)
	n := copy(buf, guidRIFF)
	binary.LittleEndian.PutUint64(buf[n:], uint64(riffSize))
	n += 8
	n += copy(buf[n:], guidWAVE)

	n += copy(buf[n:], guidFmt)
	binary.LittleEndian.PutUint64(buf[n:], uint64(w64ChunkHeaderSize+fmtBody))
	n += 8
	blockAlign := w.fmt.NChan * int(w.depth)
	binary.LittleEndian.PutUint16(buf[n:], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[n+2:], uint16(w.fmt.NChan))
	binary.LittleEndian.PutUint32(buf[n+4:], uint32(w.fmt.SampleRate))
	binary.LittleEndian.PutUint32(buf[n+8:], uint32(w.fmt.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[n+12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[n+14:], uint16(w.fmt.BitsPerSample))
	n = len(buf) - w64ChunkHeaderSize

	n += copy(buf[n:], guidData)
	binary.LittleEndian.PutUint64(buf[n:], uint64(w64ChunkHeaderSize+data))

	_, err := w.ws.Write(buf)
	return errors.WithStack(err)
}

func (w *w64Writer) WriteSamples(src []int32) error {
	need := len(src) * int(w.depth)
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]
	frame.WritePCM(buf, src, w.depth)
	if _, err := w.ws.Write(buf); err != nil {
		return errors.WithStack(err)
	}
	w.data += int64(need)
	return nil
}

func (w *w64Writer) Close() error {
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	if err := w.writeHeaders(w.data); err != nil {
		return err
	}
	_, err := w.ws.Seek(0, io.SeekEnd)
	return errors.WithStack(err)
}
