package packet

// Iterator walks the packets of a list one at a time.
//
// The next packet is found from the current one alone: its header size plus
// declared data length, rounded up to the layout alignment. This is the same
// stepping rule the host applies, so any list the host produced can be walked
// without an offset table.
type Iterator struct {
	list      PacketList
	remaining int
	off       int
}

// Next returns the next packet and true, or a zero Packet and false once the
// list is exhausted.
func (it *Iterator) Next() (Packet, bool) {
	if it.remaining == 0 {
		return Packet{}, false
	}
	p := Packet{buf: it.list.buf, off: it.off, layout: it.list.layout}
	it.remaining--
	it.off = it.list.layout.next(it.off, p.Len())
	return p, true
}

// Remaining returns how many packets Next has yet to yield.
func (it *Iterator) Remaining() int {
	return it.remaining
}
