package meta

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// apePreamble is present at the beginning of an APEv2 tag placed before the
// audio data. The 32-byte tag header states the size of the item blob and
// footer that follow it.
const apePreamble = "APETAGEX"

const apeHeaderSize = 32

// SkipTags advances rs past any run of APEv2 and ID3v2 tags, leaving it
// positioned at the first byte that belongs to neither. A TTA1 payload with
// leading tags is consumed identically to the same payload without them.
func SkipTags(rs io.ReadSeeker) error {
	for {
		ape, err := skipAPE(rs)
		if err != nil {
			return err
		}
		id3, err := skipID3(rs)
		if err != nil {
			return err
		}
		if !ape && !id3 {
			return nil
		}
	}
}

// skipAPE reports whether an APEv2 tag was present and skipped.
func skipAPE(rs io.ReadSeeker) (bool, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, errors.WithStack(err)
	}
	var hdr [apeHeaderSize]byte
	if _, err := io.ReadFull(rs, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			_, err = rs.Seek(start, io.SeekStart)
			return false, errors.WithStack(err)
		}
		return false, errors.WithStack(err)
	}
	if string(hdr[:8]) != apePreamble {
		_, err := rs.Seek(start, io.SeekStart)
		return false, errors.WithStack(err)
	}
	// The size field covers the items and footer, not this header.
	size := binary.LittleEndian.Uint32(hdr[12:16])
	if _, err := rs.Seek(int64(size), io.SeekCurrent); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

const id3HeaderSize = 10

// skipID3 reports whether an ID3v2 tag was present and skipped. The tag
// length behind the 10-byte header is a sync-safe integer: four bytes of
// seven payload bits each.
func skipID3(rs io.ReadSeeker) (bool, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, errors.WithStack(err)
	}
	var hdr [id3HeaderSize]byte
	if _, err := io.ReadFull(rs, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			_, err = rs.Seek(start, io.SeekStart)
			return false, errors.WithStack(err)
		}
		return false, errors.WithStack(err)
	}
	if string(hdr[:3]) != "ID3" {
		_, err := rs.Seek(start, io.SeekStart)
		return false, errors.WithStack(err)
	}
	size := id3SyncSafe(hdr[6], hdr[7], hdr[8], hdr[9])
	if _, err := rs.Seek(int64(size), io.SeekCurrent); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// id3SyncSafe decodes an ID3 sync-safe integer.
func id3SyncSafe(x0, x1, x2, x3 byte) uint32 {
	var v uint32
	v |= uint32(x0&0x7F) << 21
	v |= uint32(x1&0x7F) << 14
	v |= uint32(x2&0x7F) << 7
	v |= uint32(x3 & 0x7F)
	return v
}
