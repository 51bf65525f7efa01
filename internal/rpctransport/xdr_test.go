package rpctransport

import (
	"io"
	"testing"
)

func TestXDRStringRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.PutString("hello")
	e.PutUint32(42)

	d := NewDecoder(e.Bytes())
	s, err := d.String(100)
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q, want %q", s, "hello")
	}

	n, err := d.Uint32()
	if err != nil {
		t.Fatalf("Uint32: %v", err)
	}
	if n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}

func TestXDROpaqueTooLong(t *testing.T) {
	e := NewEncoder()
	e.PutOpaque(make([]byte, 10))

	d := NewDecoder(e.Bytes())
	if _, err := d.Opaque(4); err != ErrOpaqueTooLong {
		t.Fatalf("got %v, want ErrOpaqueTooLong", err)
	}
}

func TestXDRPaddingAligns(t *testing.T) {
	e := NewEncoder()
	e.PutString("abc") // 3 bytes + 1 pad byte

	if len(e.Bytes()) != 4+4 {
		t.Fatalf("encoded length %d, want 8", len(e.Bytes()))
	}
}

func TestRecordMarkRoundTrip(t *testing.T) {
	var buf recordBuffer
	if err := writeRecord(&buf, []byte("payload")); err != nil {
		t.Fatalf("writeRecord: %v", err)
	}

	got, err := readRecord(&buf)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
}

// recordBuffer is a minimal io.ReadWriter over an in-memory slice, used so
// the record-marking test doesn't need a real socket.
type recordBuffer struct {
	data []byte
	off  int
}

func (b *recordBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *recordBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.data[b.off:])
	b.off += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
