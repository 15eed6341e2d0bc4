package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/ssargent/midiwire/pkg/packet"
)

// HeaderSize is the size of the fixed frame header.
const HeaderSize = 20

// Frame is one captured packet list with its metadata
type Frame struct {
	CRC32        uint32 // CRC32 checksum for integrity
	EndpointSize uint32 // Size of the endpoint name in bytes
	ListSize     uint32 // Size of the encoded list in bytes
	Timestamp    uint64 // Capture time in Unix nanoseconds
	Endpoint     []byte // Endpoint name
	List         []byte // Encoded packet list
}

// FrameCodec handles serialization and deserialization of frames
type FrameCodec struct {
	now func() time.Time
}

// NewFrameCodec creates a new frame codec instance
func NewFrameCodec() *FrameCodec {
	return &FrameCodec{now: time.Now}
}

// Encode frames an encoded packet list captured on endpoint
func (c *FrameCodec) Encode(endpoint string, list []byte) ([]byte, error) {
	f := NewFrame(endpoint, list, c.now())
	return f.Encode(), nil
}

// Decode deserializes a binary frame into a Frame struct
func (c *FrameCodec) Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("data too short for frame header: %d < %d", len(data), HeaderSize)
	}

	f := &Frame{}
	f.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	f.EndpointSize = binary.LittleEndian.Uint32(data[4:8])
	f.ListSize = binary.LittleEndian.Uint32(data[8:12])
	f.Timestamp = binary.LittleEndian.Uint64(data[12:20])

	total := uint64(HeaderSize) + uint64(f.EndpointSize) + uint64(f.ListSize)
	if uint64(len(data)) < total {
		return nil, fmt.Errorf("data too short for endpoint/list sizes: %d < %d", len(data), total)
	}

	listStart := HeaderSize + int(f.EndpointSize)
	f.Endpoint = data[HeaderSize:listStart]
	f.List = data[listStart : listStart+int(f.ListSize)]

	return f, nil
}

// NewFrame creates a frame captured at the given time. The CRC is filled in by
// Encode.
func NewFrame(endpoint string, list []byte, captured time.Time) *Frame {
	if len(endpoint) > int(^uint32(0)) {
		panic("endpoint too large")
	}
	if len(list) > int(^uint32(0)) {
		panic("list too large")
	}
	return &Frame{
		EndpointSize: uint32(len(endpoint)),
		ListSize:     uint32(len(list)),
		Timestamp:    uint64(captured.UnixNano()),
		Endpoint:     []byte(endpoint),
		List:         list,
	}
}

// Encode serializes the frame, computing its CRC.
func (f *Frame) Encode() []byte {
	f.CRC32 = f.calculateCRC32()

	buf := make([]byte, f.Size())
	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.EndpointSize)
	binary.LittleEndian.PutUint32(buf[8:], f.ListSize)
	binary.LittleEndian.PutUint64(buf[12:], f.Timestamp)
	copy(buf[HeaderSize:], f.Endpoint)
	copy(buf[HeaderSize+len(f.Endpoint):], f.List)

	return buf
}

// Validate checks the integrity of a frame using CRC32
func (f *Frame) Validate() error {
	if crc := f.calculateCRC32(); f.CRC32 != crc {
		return fmt.Errorf("CRC32 mismatch: %d != %d", f.CRC32, crc)
	}
	return nil
}

// Size returns the total size of the frame when encoded
func (f *Frame) Size() int {
	return HeaderSize + len(f.Endpoint) + len(f.List)
}

// CapturedAt returns the capture time.
func (f *Frame) CapturedAt() time.Time {
	return time.Unix(0, int64(f.Timestamp))
}

// PacketList parses the framed list with the layout it was captured in.
func (f *Frame) PacketList(layout packet.Layout) (packet.PacketList, error) {
	return packet.ParsePacketList(f.List, layout)
}

// calculateCRC32 computes the checksum over everything but the CRC field
func (f *Frame) calculateCRC32() uint32 {
	var header [HeaderSize - 4]byte
	binary.LittleEndian.PutUint32(header[0:], f.EndpointSize)
	binary.LittleEndian.PutUint32(header[4:], f.ListSize)
	binary.LittleEndian.PutUint64(header[8:], f.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(header[:])
	crc.Write(f.Endpoint)
	crc.Write(f.List)
	return crc.Sum32()
}
