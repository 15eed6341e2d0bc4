package packet

import (
	"fmt"
	"slices"
)

// PacketBuffer builds a packet list by appending packets.
//
// The buffer always holds a valid list: a fresh PacketBuffer is the 4-byte
// header with a zero count, and every WithData call leaves the header count
// equal to the number of packets appended so far. A PacketBuffer is not safe
// for concurrent use.
type PacketBuffer struct {
	data   []byte
	count  int
	layout Layout

	// borrowed is set once data has been handed out through List or Bytes.
	// The next append then copies into new storage so handed-out views keep
	// seeing exactly the bytes they were created with.
	borrowed bool
}

// NewPacketBuffer returns an empty buffer encoding with the given layout. It
// panics if the layout is invalid.
func NewPacketBuffer(layout Layout) *PacketBuffer {
	layout.mustValidate()
	data := make([]byte, ListHeaderSize, ListHeaderSize+PacketHeaderSize+3)
	return &PacketBuffer{data: data, layout: layout}
}

// NewNativePacketBuffer returns an empty buffer for the running host.
func NewNativePacketBuffer() *PacketBuffer {
	return NewPacketBuffer(NativeLayout())
}

// FromData returns a buffer holding a single packet.
//
// The timestamp is the host tick at which the events are to be played, zero
// meaning now. It applies to the first byte of data.
func FromData(layout Layout, timestamp Timestamp, data []byte) *PacketBuffer {
	return NewPacketBuffer(layout).WithData(timestamp, data)
}

// WithData appends a packet and returns the buffer so calls can be chained:
//
//	chord := packet.NewNativePacketBuffer().
//		WithData(0, []byte{0x90, 0x3c, 0x7f}).
//		WithData(0, []byte{0x90, 0x40, 0x7f})
//
// It panics if len(data) is MaxPacketDataLength or more; the buffer is left
// untouched in that case.
func (b *PacketBuffer) WithData(timestamp Timestamp, data []byte) *PacketBuffer {
	n := len(data)
	if n >= MaxPacketDataLength {
		panic(fmt.Sprintf("The maximum allowed size for a packet is %d, but found %d.", MaxPacketDataLength, n))
	}

	pad := Padding(len(b.data), b.layout.Align)
	additional := pad + PacketHeaderSize + n
	if b.borrowed {
		grown := make([]byte, len(b.data), max(2*cap(b.data), len(b.data)+additional))
		copy(grown, b.data)
		b.data = grown
		b.borrowed = false
	} else {
		b.data = slices.Grow(b.data, additional)
	}

	off := len(b.data) + pad
	b.data = b.data[:len(b.data)+additional]
	clear(b.data[off-pad : off])
	b.layout.Order.PutUint64(b.data[off:], timestamp)
	b.layout.Order.PutUint16(b.data[off+8:], uint16(n))
	copy(b.data[off+PacketHeaderSize:], data)

	// Growth may have moved the storage; write the count through the current
	// slice rather than any earlier reference.
	b.count++
	b.layout.Order.PutUint32(b.data, uint32(b.count))

	return b
}

// List returns a view of the packets appended so far.
//
// The view keeps the state of the buffer at the time of the call. It does not
// see packets appended later, and it stays readable after the buffer grows.
func (b *PacketBuffer) List() PacketList {
	b.borrowed = true
	return PacketList{buf: b.data[:len(b.data):len(b.data)], count: b.count, layout: b.layout}
}

// Len returns the number of packets in the buffer.
func (b *PacketBuffer) Len() int {
	return b.count
}

// Size returns the encoded size of the buffer in bytes.
func (b *PacketBuffer) Size() int {
	return len(b.data)
}

// Layout returns the layout the buffer encodes with.
func (b *PacketBuffer) Layout() Layout {
	return b.layout
}

// Bytes returns the encoded list. Later appends do not modify the returned
// slice.
func (b *PacketBuffer) Bytes() []byte {
	b.borrowed = true
	return b.data[:len(b.data):len(b.data)]
}

// Clone returns an independent copy of the buffer.
func (b *PacketBuffer) Clone() *PacketBuffer {
	return &PacketBuffer{data: slices.Clone(b.data), count: b.count, layout: b.layout}
}

// Reset empties the buffer. Views taken earlier keep their own storage.
func (b *PacketBuffer) Reset() {
	b.data = make([]byte, ListHeaderSize, ListHeaderSize+PacketHeaderSize+3)
	b.count = 0
	b.borrowed = false
}

func (b *PacketBuffer) String() string {
	return b.view().String()
}

func (b *PacketBuffer) GoString() string {
	return b.view().GoString()
}

// view is List without marking the storage as handed out. The result must not
// outlive the call that created it.
func (b *PacketBuffer) view() PacketList {
	return PacketList{buf: b.data, count: b.count, layout: b.layout}
}
