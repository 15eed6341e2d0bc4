package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/ssargent/midiwire/pkg/packet"
)

var layout = packet.Layout{Align: packet.Align1, Order: binary.LittleEndian}

func TestFrameCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name     string
		endpoint string
		list     []byte
	}{
		{
			name:     "single note",
			endpoint: "synth",
			list:     packet.FromData(layout, 0, []byte{0x90, 0x40, 0x7f}).Bytes(),
		},
		{
			name:     "empty list",
			endpoint: "synth",
			list:     packet.NewPacketBuffer(layout).Bytes(),
		},
		{
			name:     "empty endpoint",
			endpoint: "",
			list:     packet.FromData(layout, 1, []byte{0xf8}).Bytes(),
		},
		{
			name:     "sysex",
			endpoint: "drum machine",
			list:     packet.FromData(layout, 2, bytes.Repeat([]byte{0x7e}, 1024)).Bytes(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.endpoint, tc.list)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			frame, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := frame.Validate(); err != nil {
				t.Fatalf("Frame validation failed: %v", err)
			}

			if string(frame.Endpoint) != tc.endpoint {
				t.Errorf("Endpoint mismatch: got %q, want %q", frame.Endpoint, tc.endpoint)
			}
			if !bytes.Equal(frame.List, tc.list) {
				t.Errorf("List mismatch: got %x, want %x", frame.List, tc.list)
			}
			if frame.Size() != len(encoded) {
				t.Errorf("Size mismatch: got %d, want %d", frame.Size(), len(encoded))
			}

			list, err := frame.PacketList(layout)
			if err != nil {
				t.Fatalf("PacketList failed: %v", err)
			}
			want := packet.MustParsePacketList(tc.list, layout)
			if list.Length() != want.Length() {
				t.Errorf("Length mismatch: got %d, want %d", list.Length(), want.Length())
			}

			now := time.Now()
			if frame.CapturedAt().After(now) || frame.CapturedAt().Before(now.Add(-time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %v", frame.CapturedAt())
			}
		})
	}
}

func TestFrame_CRCValidation(t *testing.T) {
	codec := NewFrameCodec()
	list := packet.FromData(layout, 0, []byte{0x90, 0x40, 0x7f}).Bytes()

	corruptions := []struct {
		name   string
		offset func(encoded []byte) int
	}{
		{name: "crc field", offset: func([]byte) int { return 0 }},
		{name: "timestamp", offset: func([]byte) int { return 12 }},
		{name: "endpoint", offset: func([]byte) int { return HeaderSize }},
		{name: "list", offset: func(encoded []byte) int { return len(encoded) - 1 }},
	}

	for _, c := range corruptions {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := codec.Encode("synth", list)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			encoded[c.offset(encoded)] ^= 0xFF

			frame, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := frame.Validate(); err == nil {
				t.Error("Expected validation to fail for corrupted frame, but it passed")
			}
		})
	}
}

func TestFrameCodec_MalformedData(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "empty data",
			data: []byte{},
		},
		{
			name: "too short for header",
			data: []byte{0x01, 0x02, 0x03},
		},
		{
			name: "insufficient data for declared endpoint size",
			data: func() []byte {
				buf := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], 100)
				return buf
			}(),
		},
		{
			name: "insufficient data for declared list size",
			data: func() []byte {
				buf := make([]byte, HeaderSize+5)
				binary.LittleEndian.PutUint32(buf[4:8], 5)
				binary.LittleEndian.PutUint32(buf[8:12], 100)
				return buf
			}(),
		},
		{
			name: "sizes overflow",
			data: func() []byte {
				buf := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], 0xffffffff)
				binary.LittleEndian.PutUint32(buf[8:12], 0xffffffff)
				return buf
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Decode(tc.data); err == nil {
				t.Errorf("Expected decode to fail for malformed data (%s)", tc.name)
			}
		})
	}
}

func TestFrame_PacketListRejectsGarbage(t *testing.T) {
	frame := NewFrame("synth", []byte{0x05, 0x00, 0x00, 0x00}, time.Unix(0, 1))
	if _, err := frame.PacketList(layout); err == nil {
		t.Error("Expected PacketList to fail for a list claiming 5 packets")
	}
}

func TestFrame_FixedTimestamp(t *testing.T) {
	codec := &FrameCodec{now: func() time.Time { return time.Unix(1719043200, 0) }}

	encoded, err := codec.Encode("synth", packet.NewPacketBuffer(layout).Bytes())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := binary.LittleEndian.Uint64(encoded[12:20]); got != 1719043200000000000 {
		t.Errorf("Timestamp = %d, want 1719043200000000000", got)
	}
	if len(encoded) != HeaderSize+len("synth")+packet.ListHeaderSize {
		t.Errorf("Encoded size = %d", len(encoded))
	}
}
