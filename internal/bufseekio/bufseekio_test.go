package bufseekio

import (
	"bytes"
	"io"
	"testing"
)

func testData() []byte {
	buf := make([]byte, 1000)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestReadAll(t *testing.T) {
	want := testData()
	b := NewSize(bytes.NewReader(want), 16)
	got, err := io.ReadAll(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("buffered read differs from source")
	}
}

func TestSeekWithinBuffer(t *testing.T) {
	data := testData()
	b := NewSize(bytes.NewReader(data), 64)

	var buf [8]byte
	if _, err := io.ReadFull(b, buf[:]); err != nil {
		t.Fatal(err)
	}

	// Rewind into the buffered window.
	pos, err := b.Seek(2, io.SeekStart)
	if err != nil || pos != 2 {
		t.Fatalf("Seek(2); pos %d, err %v", pos, err)
	}
	if _, err := io.ReadFull(b, buf[:]); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 2 || buf[7] != 9 {
		t.Fatalf("read after rewind; got % X", buf)
	}

	// Current position reporting.
	pos, err = b.Seek(0, io.SeekCurrent)
	if err != nil || pos != 10 {
		t.Fatalf("Seek(0, current); pos %d, err %v", pos, err)
	}

	// Relative seek past the window falls back to the source.
	pos, err = b.Seek(500, io.SeekCurrent)
	if err != nil || pos != 510 {
		t.Fatalf("Seek(500, current); pos %d, err %v", pos, err)
	}
	if _, err := io.ReadFull(b, buf[:1]); err != nil {
		t.Fatal(err)
	}
	if buf[0] != byte(510%256) {
		t.Fatalf("read after long seek; expected %d, got %d", byte(510%256), buf[0])
	}
}

func TestSeekEnd(t *testing.T) {
	data := testData()
	b := New(bytes.NewReader(data))
	pos, err := b.Seek(-4, io.SeekEnd)
	if err != nil || pos != 996 {
		t.Fatalf("Seek(-4, end); pos %d, err %v", pos, err)
	}
	got, err := io.ReadAll(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data[996:]) {
		t.Fatalf("read after end seek; got % X", got)
	}
}
