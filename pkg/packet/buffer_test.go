package packet

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	packed = Layout{Align: Align1, Order: binary.LittleEndian}
	padded = Layout{Align: Align4, Order: binary.LittleEndian}
)

func TestNewPacketBuffer(t *testing.T) {
	for _, layout := range []Layout{packed, padded, NativeLayout()} {
		buf := NewPacketBuffer(layout)

		if buf.Size() != ListHeaderSize {
			t.Errorf("%v: size = %d, want %d", layout, buf.Size(), ListHeaderSize)
		}
		if !bytes.Equal(buf.Bytes(), []byte{0x00, 0x00, 0x00, 0x00}) {
			t.Errorf("%v: bytes = %x, want 00000000", layout, buf.Bytes())
		}
		if buf.List().Length() != 0 {
			t.Errorf("%v: length = %d, want 0", layout, buf.List().Length())
		}
		if _, ok := buf.List().Iter().Next(); ok {
			t.Errorf("%v: empty buffer yielded a packet", layout)
		}
	}
}

func TestNewPacketBuffer_InvalidLayout(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for alignment 2")
		}
	}()
	NewPacketBuffer(Layout{Align: 2, Order: binary.LittleEndian})
}

func TestPacketBuffer_WithData(t *testing.T) {
	buf := NewPacketBuffer(packed).WithData(0x0102030405060708, []byte{0x90, 0x40, 0x7f})

	want := []byte{
		0x01, 0x00, 0x00, 0x00,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x03, 0x00,
		0x90, 0x40, 0x7f,
	}
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Errorf("encoded bytes mismatch (-want +got):\n%s", diff)
	}
	if buf.Size() != 17 {
		t.Errorf("size = %d, want 17", buf.Size())
	}
}

func TestPacketBuffer_WithData_BigEndian(t *testing.T) {
	layout := Layout{Align: Align1, Order: binary.BigEndian}
	buf := FromData(layout, 0x0102030405060708, []byte{0x90, 0x40, 0x7f})

	want := []byte{
		0x00, 0x00, 0x00, 0x01,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x00, 0x03,
		0x90, 0x40, 0x7f,
	}
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Errorf("encoded bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestPacketBuffer_WithData_Padding(t *testing.T) {
	buf := NewPacketBuffer(padded).
		WithData(1, []byte{0x90, 0x40, 0x7f}).
		WithData(2, []byte{0x80, 0x40, 0x7f})

	// 4 header + 13 first packet + 3 padding + 13 second packet.
	if buf.Size() != 33 {
		t.Fatalf("size = %d, want 33", buf.Size())
	}
	b := buf.Bytes()
	if !bytes.Equal(b[17:20], []byte{0, 0, 0}) {
		t.Errorf("padding = %x, want 000000", b[17:20])
	}
	if ts := binary.LittleEndian.Uint64(b[20:]); ts != 2 {
		t.Errorf("second timestamp = %d, want 2", ts)
	}

	// No padding follows the last packet.
	single := FromData(padded, 0, []byte{0x90, 0x40, 0x7f})
	if single.Size() != 17 {
		t.Errorf("single packet size = %d, want 17", single.Size())
	}
}

func TestPacketBuffer_WithData_AlignedPayload(t *testing.T) {
	// 10 + 2 is already a multiple of 4, so no padding is needed.
	buf := NewPacketBuffer(padded).
		WithData(0, []byte{0xc0, 0x01}).
		WithData(0, []byte{0xc0, 0x02})
	if buf.Size() != 4+12+12 {
		t.Errorf("size = %d, want %d", buf.Size(), 4+12+12)
	}
}

func TestPacketBuffer_Length(t *testing.T) {
	buf := NewPacketBuffer(packed).
		WithData(0, []byte{0x90, 0x40, 0x7f}).
		WithData(0, []byte{0x91, 0x40, 0x7f}).
		WithData(0, []byte{0x80, 0x40, 0x7f}).
		WithData(0, []byte{0x81, 0x40, 0x7f})

	if buf.List().Length() != 4 {
		t.Errorf("length = %d, want 4", buf.List().Length())
	}
	if binary.LittleEndian.Uint32(buf.Bytes()) != 4 {
		t.Errorf("header count = %d, want 4", binary.LittleEndian.Uint32(buf.Bytes()))
	}
}

func TestPacketBuffer_LengthMatchesAppends(t *testing.T) {
	for _, layout := range []Layout{packed, padded} {
		buf := NewPacketBuffer(layout)
		for n := 1; n <= 200; n++ {
			buf.WithData(Timestamp(n), bytes.Repeat([]byte{byte(n)}, n%17))
			if got := buf.List().Length(); got != n {
				t.Fatalf("%v: after %d appends length = %d", layout, n, got)
			}
			if got := int(layout.Order.Uint32(buf.Bytes())); got != n {
				t.Fatalf("%v: after %d appends header count = %d", layout, n, got)
			}
		}
	}
}

func TestPacketBuffer_WithData_TooLarge(t *testing.T) {
	buf := NewPacketBuffer(packed).WithData(0, []byte{0x90, 0x40, 0x7f})
	before := append([]byte(nil), buf.Bytes()...)

	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic for oversized packet")
			}
			msg, _ := r.(string)
			if !strings.Contains(msg, "65535") {
				t.Errorf("panic message = %q", msg)
			}
		}()
		buf.WithData(0, make([]byte, MaxPacketDataLength))
	}()

	if !bytes.Equal(before, buf.Bytes()) {
		t.Error("buffer changed after rejected append")
	}
	if buf.Len() != 1 {
		t.Errorf("len = %d, want 1", buf.Len())
	}
}

func TestPacketBuffer_LargestPacket(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, MaxPacketDataLength-1)
	buf := FromData(packed, 7, data)

	p, ok := buf.List().Iter().Next()
	if !ok {
		t.Fatal("no packet")
	}
	if p.Len() != MaxPacketDataLength-1 {
		t.Errorf("len = %d, want %d", p.Len(), MaxPacketDataLength-1)
	}
	if !bytes.Equal(p.Data(), data) {
		t.Error("data mismatch")
	}
}

func TestPacketBuffer_StaleView(t *testing.T) {
	buf := NewPacketBuffer(packed).WithData(1, []byte{0x90, 0x40, 0x7f})
	old := buf.List()
	oldBytes := append([]byte(nil), old.Bytes()...)

	for i := 0; i < 100; i++ {
		buf.WithData(Timestamp(i), bytes.Repeat([]byte{0xaa}, 50))
	}

	if old.Length() != 1 {
		t.Errorf("stale view length = %d, want 1", old.Length())
	}
	if !bytes.Equal(old.Bytes(), oldBytes) {
		t.Errorf("stale view bytes changed: %x", old.Bytes())
	}
	packets := old.Packets()
	if len(packets) != 1 || packets[0].Timestamp() != 1 {
		t.Errorf("stale view packets = %#v", old)
	}
	if buf.List().Length() != 101 {
		t.Errorf("fresh view length = %d, want 101", buf.List().Length())
	}
}

func TestPacketBuffer_StaleViewWithSpareCapacity(t *testing.T) {
	buf := NewPacketBuffer(packed)
	buf.WithData(0, make([]byte, 100))
	buf.Reset()
	buf.WithData(0, []byte{0x01})

	view := buf.List()
	buf.WithData(0, []byte{0x02})

	if got := packed.Order.Uint32(view.Bytes()); got != 1 {
		t.Errorf("view header count = %d after append, want 1", got)
	}
}

func TestPacketBuffer_CloneAndReset(t *testing.T) {
	buf := NewPacketBuffer(packed).WithData(0, []byte{0x90, 0x40, 0x7f})
	clone := buf.Clone()
	buf.Reset()

	if buf.Len() != 0 || buf.Size() != ListHeaderSize {
		t.Errorf("reset buffer: len=%d size=%d", buf.Len(), buf.Size())
	}
	if clone.Len() != 1 || clone.Size() != 17 {
		t.Errorf("clone: len=%d size=%d", clone.Len(), clone.Size())
	}

	clone.WithData(1, []byte{0x80, 0x40, 0x00})
	if buf.Len() != 0 {
		t.Error("appending to the clone changed the original")
	}
}

func TestPacketBuffer_String(t *testing.T) {
	buf := NewPacketBuffer(packed).
		WithData(0, []byte{0x90, 0x3c, 0x7f}).
		WithData(0, []byte{0x90, 0x40, 0x7f})

	want := "PacketList(len=2)\n  0000000000000000: 90 3c 7f\n  0000000000000000: 90 40 7f"
	if got := buf.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPacketBuffer_StringKeepsStorage(t *testing.T) {
	buf := NewPacketBuffer(packed).WithData(0, []byte{0x90, 0x40, 0x7f})
	_ = buf.String()
	_ = buf.GoString()
	if buf.borrowed {
		t.Fatal("formatting the buffer marked its storage as borrowed")
	}

	buf.WithData(1, []byte{0x80, 0x40, 0x00})
	if buf.Len() != 2 {
		t.Errorf("len = %d, want 2", buf.Len())
	}
}
