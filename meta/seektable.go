package meta

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/tta/internal/crc32"
)

// A SeekTable records the compressed byte length of each frame, which is
// what makes frame-accurate random access possible: the byte offset of
// frame n is the header and table size plus the sum of the first n entries.
//
// Encoded layout: one little-endian uint32 per frame, followed by a
// little-endian uint32 CRC-32 over the table bytes themselves.
type SeekTable struct {
	// Compressed size in bytes of each frame, in stream order.
	Sizes []uint32
}

// ParseSeekTable reads and validates a seek table of nframes entries.
func ParseSeekTable(r io.Reader, nframes int) (*SeekTable, error) {
	buf := make([]byte, 4*nframes+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.WithStack(err)
	}
	crc := binary.LittleEndian.Uint32(buf[4*nframes:])
	if got := crc32.Checksum(buf[:4*nframes]); got != crc {
		return nil, errors.Errorf("meta.ParseSeekTable: seek table CRC mismatch; expected 0x%08X, got 0x%08X", crc, got)
	}
	st := &SeekTable{Sizes: make([]uint32, nframes)}
	for i := range st.Sizes {
		st.Sizes[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return st, nil
}

// Write encodes the seek table, including its CRC, to w.
func (st *SeekTable) Write(w io.Writer) error {
	buf := make([]byte, 4*len(st.Sizes)+4)
	for i, size := range st.Sizes {
		binary.LittleEndian.PutUint32(buf[4*i:], size)
	}
	binary.LittleEndian.PutUint32(buf[4*len(st.Sizes):], crc32.Checksum(buf[:4*len(st.Sizes)]))
	_, err := w.Write(buf)
	return errors.WithStack(err)
}

// Size returns the encoded size of the seek table in bytes, CRC included.
func (st *SeekTable) Size() int64 {
	return int64(4*len(st.Sizes) + 4)
}

// EncodedSeekTableSize returns the encoded size of a seek table of nframes
// entries without building one; the encoder uses it to reserve space before
// the frame sizes are known.
func EncodedSeekTableSize(nframes int) int64 {
	return int64(4*nframes + 4)
}
