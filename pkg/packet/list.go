package packet

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrShortBuffer is returned when a buffer cannot hold the list header.
	ErrShortBuffer = errors.New("buffer too short for packet list header")
	// ErrTruncatedPacket is returned when the header count promises more
	// packets than the buffer holds.
	ErrTruncatedPacket = errors.New("packet extends past end of buffer")
)

// PacketList is a read-only view of an encoded packet list.
//
// The packet count is read once, when the view is created. Lists produced by
// ParsePacketList or PacketBuffer.List are always well formed, so iterating
// them never reads outside the backing buffer.
type PacketList struct {
	buf    []byte // header plus every packet, without trailing bytes
	count  int
	layout Layout
}

// ParsePacketList validates b as a packet list in the given layout and returns
// a view of it. Bytes following the last packet are ignored, since hosts
// usually hand over fixed-size buffers.
func ParsePacketList(b []byte, layout Layout) (PacketList, error) {
	if err := layout.Validate(); err != nil {
		return PacketList{}, err
	}
	if len(b) < ListHeaderSize {
		return PacketList{}, fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(b), ListHeaderSize)
	}

	raw := layout.Order.Uint32(b)
	if maxCount := (len(b) - ListHeaderSize) / PacketHeaderSize; uint64(raw) > uint64(maxCount) {
		return PacketList{}, fmt.Errorf("%w: count %d, room for at most %d", ErrTruncatedPacket, raw, maxCount)
	}
	count := int(raw)
	off, end := ListHeaderSize, ListHeaderSize
	for i := 0; i < count; i++ {
		if off+PacketHeaderSize > len(b) {
			return PacketList{}, fmt.Errorf("%w: packet %d header at offset %d", ErrTruncatedPacket, i, off)
		}
		length := int(layout.Order.Uint16(b[off+8:]))
		end = off + PacketHeaderSize + length
		if end > len(b) {
			return PacketList{}, fmt.Errorf("%w: packet %d needs %d bytes, have %d", ErrTruncatedPacket, i, end, len(b))
		}
		off = layout.next(off, length)
	}

	return PacketList{buf: b[:end:end], count: count, layout: layout}, nil
}

// MustParsePacketList is like ParsePacketList but panics on malformed input.
func MustParsePacketList(b []byte, layout Layout) PacketList {
	l, err := ParsePacketList(b, layout)
	if err != nil {
		panic(err)
	}
	return l
}

// Length returns the number of packets in the list.
func (l PacketList) Length() int {
	return l.count
}

// Layout returns the layout the list is encoded with.
func (l PacketList) Layout() Layout {
	return l.layout
}

// Bytes returns the encoded list. The slice aliases the backing buffer.
func (l PacketList) Bytes() []byte {
	return l.buf
}

// Size returns the encoded size of the list in bytes.
func (l PacketList) Size() int {
	return len(l.buf)
}

// Iter returns a new iterator positioned at the first packet. Every call
// starts over; iterating does not change the list.
func (l PacketList) Iter() *Iterator {
	return &Iterator{list: l, remaining: l.count, off: ListHeaderSize}
}

// All returns the packets of the list as a range-over-func sequence.
func (l PacketList) All() iter.Seq[Packet] {
	return func(yield func(Packet) bool) {
		it := l.Iter()
		for {
			p, ok := it.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Packets collects the views of every packet in the list.
func (l PacketList) Packets() []Packet {
	packets := make([]Packet, 0, l.count)
	for p := range l.All() {
		packets = append(packets, p)
	}
	return packets
}

// String renders the count followed by one packet per line.
func (l PacketList) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PacketList(len=%d)", l.count)
	for p := range l.All() {
		sb.WriteString("\n  ")
		sb.WriteString(p.String())
	}
	return sb.String()
}

// GoString renders the list with packet offsets for %#v.
func (l PacketList) GoString() string {
	var sb strings.Builder
	sb.WriteString("PacketList(packets=[")
	i := 0
	for p := range l.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.GoString())
		i++
	}
	sb.WriteString("])")
	return sb.String()
}
