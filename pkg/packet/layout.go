package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
)

const (
	// ListHeaderSize is the size of the packet count that starts every list.
	ListHeaderSize = 4
	// PacketHeaderSize is the size of a packet timestamp plus its length field.
	PacketHeaderSize = 8 + 2

	// MaxPacketDataLength is the exclusive upper bound for the payload of a
	// packet appended with PacketBuffer.WithData.
	MaxPacketDataLength = 0xffff

	// MaxPacketListSize is the largest encoded list the host accepts for a
	// single transmit call. The builder does not enforce it; transports do.
	MaxPacketListSize = 65536
)

// Alignment is the boundary a packet header has to start on.
type Alignment int

const (
	// Align1 packs packets back to back.
	Align1 Alignment = 1
	// Align4 pads every packet so the following header is 4-byte aligned.
	Align4 Alignment = 4
)

// ErrInvalidLayout is returned for an unsupported alignment or a missing byte
// order.
var ErrInvalidLayout = errors.New("invalid packet layout")

// NativeAlignment reports the packet alignment the host uses on the
// architecture this binary was built for.
func NativeAlignment() Alignment {
	switch runtime.GOARCH {
	case "arm", "arm64":
		return Align4
	default:
		return Align1
	}
}

// Padding returns the number of filler bytes needed after n bytes so the next
// header lands on an align boundary.
func Padding(n int, align Alignment) int {
	a := int(align)
	if a <= 1 {
		return 0
	}
	return (a - n%a) % a
}

// Layout describes how packet lists are encoded on a given host.
type Layout struct {
	Align Alignment
	Order binary.ByteOrder
}

// NativeLayout returns the layout of the running host.
func NativeLayout() Layout {
	return Layout{Align: NativeAlignment(), Order: binary.NativeEndian}
}

// Validate checks that the layout can be used to encode or decode lists.
func (l Layout) Validate() error {
	if l.Align != Align1 && l.Align != Align4 {
		return fmt.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	if l.Order == nil {
		return fmt.Errorf("%w: missing byte order", ErrInvalidLayout)
	}
	return nil
}

// Equal reports whether l and o produce the same bytes. Byte orders are
// compared by how they decode, so NativeEndian equals LittleEndian on a
// little-endian host.
func (l Layout) Equal(o Layout) bool {
	if l.Align != o.Align || (l.Order == nil) != (o.Order == nil) {
		return false
	}
	if l.Order == nil {
		return true
	}
	sample := []byte{1, 0}
	return l.Order.Uint16(sample) == o.Order.Uint16(sample)
}

func (l Layout) String() string {
	order := "<nil>"
	if l.Order != nil {
		order = l.Order.String()
	}
	return fmt.Sprintf("align=%d order=%s", l.Align, order)
}

// next returns the offset of the packet following the one at off with the
// given payload length.
func (l Layout) next(off, length int) int {
	end := off + PacketHeaderSize + length
	return end + Padding(end, l.Align)
}

// mustValidate panics on an unusable layout. Constructors that cannot return
// an error use it.
func (l Layout) mustValidate() {
	if err := l.Validate(); err != nil {
		panic(err)
	}
}
