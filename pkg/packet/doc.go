// Package packet encodes and decodes MIDI packet lists.
//
// A packet list is the batched, timestamped event buffer that the host MIDI
// subsystem passes to and from its transmit and receive calls. The layout has
// to match the host's in-memory representation bit for bit:
//
//	[Count(4)] { [Timestamp(8)][Length(2)][Data(Length)][Padding(0..3)] } * Count
//
// Fields:
//   - Count: number of packets in the list (uint32)
//   - Timestamp: host tick count, 0 means "as soon as possible" (uint64)
//   - Length: payload size in bytes (uint16)
//   - Data: raw payload, never interpreted by this package
//   - Padding: present only when the layout alignment is 4, so the next packet
//     header starts on a 4-byte boundary. Nothing follows the last packet.
//
// Header fields use the byte order of a Layout. NativeLayout matches the host
// the program runs on; tests and stored files usually pin an explicit Layout.
//
// # Building
//
//	buf := packet.NewNativePacketBuffer().
//		WithData(0, []byte{0x90, 0x3c, 0x7f}).
//		WithData(0, []byte{0x90, 0x40, 0x7f})
//	list := buf.List()
//
// # Reading
//
// ParsePacketList validates a buffer once and returns a PacketList whose
// iteration never leaves the buffer:
//
//	list, err := packet.ParsePacketList(raw, packet.NativeLayout())
//	if err != nil {
//		return err
//	}
//	for p := range list.All() {
//		fmt.Println(p.Timestamp(), p.Data())
//	}
//
// Packet and PacketList are views. Data slices alias the underlying buffer, so
// a list received from the host is only valid for as long as the host keeps
// the buffer alive.
//
// # Views and growth
//
// A PacketList taken from a PacketBuffer captures the packet count and the
// encoded prefix at the moment it was taken. Appending to the buffer afterwards
// may move the storage; the old view keeps reading the bytes it was created
// with and never observes the new packets. Take a fresh view with List after
// every append.
package packet
