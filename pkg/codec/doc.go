// Package codec frames captured packet lists for the midiwire journal.
//
// # Frame Format
//
// Frames are serialized in a binary format with the following structure:
//
//	[CRC32(4)][EndpointSize(4)][ListSize(4)][Timestamp(8)][Endpoint][List]
//
// Fields:
//   - CRC32: checksum over every field that follows it (little-endian)
//   - EndpointSize: length of the endpoint name in bytes (little-endian)
//   - ListSize: length of the encoded packet list in bytes (little-endian)
//   - Timestamp: capture time, Unix nanoseconds (little-endian)
//   - Endpoint: name of the destination the list was delivered to
//   - List: the packet list exactly as it was delivered
//
// The total frame size is: 20 bytes (header) + len(endpoint) + len(list)
//
// Frame header fields are always little-endian so journals can be moved
// between hosts. The packet list inside keeps the layout of the host that
// captured it; readers pass that layout to Frame.PacketList.
//
// # Usage
//
//	c := codec.NewFrameCodec()
//
//	encoded, err := c.Encode("synth", list.Bytes())
//	if err != nil {
//	    return err
//	}
//
//	frame, err := c.Decode(encoded)
//	if err != nil {
//	    return err
//	}
//	if err := frame.Validate(); err != nil {
//	    return err // Frame is corrupted
//	}
//	list, err := frame.PacketList(layout)
//
// Decoding is zero-copy: Endpoint and List alias the input slice.
//
// # Thread Safety
//
// FrameCodec instances are safe for concurrent use.
package codec
