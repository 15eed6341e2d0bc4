package packet

import (
	"fmt"
	"strings"
)

// Timestamp is a host tick count. Zero schedules a packet for immediate
// delivery.
type Timestamp = uint64

// Packet is a view of one timestamped packet inside an encoded list.
//
// A Packet never owns memory: it is the backing buffer plus the offset of the
// packet header. The zero Packet is not usable; packets come from a PacketList.
type Packet struct {
	buf    []byte
	off    int
	layout Layout
}

// Timestamp returns the tick at which the packet is scheduled.
func (p Packet) Timestamp() Timestamp {
	return p.layout.Order.Uint64(p.buf[p.off:])
}

// Len returns the payload length declared by the packet header.
func (p Packet) Len() int {
	return int(p.layout.Order.Uint16(p.buf[p.off+8:]))
}

// Data returns the raw payload bytes. The slice aliases the list buffer and
// must not be modified.
func (p Packet) Data() []byte {
	start := p.off + PacketHeaderSize
	end := start + p.Len()
	return p.buf[start:end:end]
}

// Size returns the encoded size of the packet without trailing padding.
func (p Packet) Size() int {
	return PacketHeaderSize + p.Len()
}

// Offset returns the position of the packet header within its list.
func (p Packet) Offset() int {
	return p.off
}

// String renders the packet as "tttttttttttttttt: aa bb cc".
func (p Packet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%016x:", p.Timestamp())
	for _, b := range p.Data() {
		fmt.Fprintf(&sb, " %02x", b)
	}
	return sb.String()
}

// GoString renders the packet with its offset for %#v.
func (p Packet) GoString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Packet(off=%d, ts=%016x, data=[", p.off, p.Timestamp())
	for i, b := range p.Data() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	sb.WriteString("])")
	return sb.String()
}
