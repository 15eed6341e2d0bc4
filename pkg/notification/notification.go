// Package notification decodes the system notifications the host MIDI
// subsystem posts when its setup changes.
//
// A notification is a tagged union:
//
//	[MessageID(4)][MessageSize(4)][Payload]
//
// MessageSize covers the whole message including the 8-byte header.
package notification

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageID identifies the kind of a notification.
type MessageID int32

const (
	MsgSetupChanged           MessageID = 1
	MsgObjectAdded            MessageID = 2
	MsgObjectRemoved          MessageID = 3
	MsgPropertyChanged        MessageID = 4
	MsgThruConnectionsChanged MessageID = 5
	MsgSerialPortOwnerChanged MessageID = 6
	MsgIOError                MessageID = 7
)

const headerSize = 8

var (
	ErrShortBuffer       = errors.New("notification too short")
	ErrUnknownMessage    = errors.New("unknown notification message")
	ErrUnknownObjectType = errors.New("unknown object type")
)

// DecodeError reports a notification that could not be turned into a typed
// value. It matches ErrUnknownMessage or ErrUnknownObjectType with errors.Is.
type DecodeError struct {
	MessageID MessageID
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("notification %d: %v", e.MessageID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Object is a reference to a host MIDI object.
type Object uint32

// Device is a reference to a driver-owned MIDI device.
type Device struct {
	Object Object
}

// Notification is one decoded system notification. The concrete types are
// SetupChanged, ObjectAdded, ObjectRemoved, PropertyChanged,
// ThruConnectionsChanged, SerialPortOwnerChanged and IOError.
type Notification interface {
	MessageID() MessageID
}

type SetupChanged struct{}

// AddedRemovedInfo describes the object and parent of an add or remove.
type AddedRemovedInfo struct {
	Parent     Object
	ParentType ObjectType
	Child      Object
	ChildType  ObjectType
}

type ObjectAdded struct {
	AddedRemovedInfo
}

type ObjectRemoved struct {
	AddedRemovedInfo
}

type PropertyChanged struct {
	Object       Object
	ObjectType   ObjectType
	PropertyName string
}

type ThruConnectionsChanged struct{}

type SerialPortOwnerChanged struct{}

// IOError reports a driver I/O failure on a device.
type IOError struct {
	DriverDevice Device
	ErrorCode    int32
}

func (SetupChanged) MessageID() MessageID           { return MsgSetupChanged }
func (ObjectAdded) MessageID() MessageID            { return MsgObjectAdded }
func (ObjectRemoved) MessageID() MessageID          { return MsgObjectRemoved }
func (PropertyChanged) MessageID() MessageID        { return MsgPropertyChanged }
func (ThruConnectionsChanged) MessageID() MessageID { return MsgThruConnectionsChanged }
func (SerialPortOwnerChanged) MessageID() MessageID { return MsgSerialPortOwnerChanged }
func (IOError) MessageID() MessageID                { return MsgIOError }

// Decode reads one notification from b. The header fields use the given byte
// order; trailing bytes beyond MessageSize are ignored.
func Decode(b []byte, order binary.ByteOrder) (Notification, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortBuffer, len(b))
	}
	id := MessageID(int32(order.Uint32(b)))
	size := int(order.Uint32(b[4:]))
	if size < headerSize || size > len(b) {
		return nil, fmt.Errorf("%w: message size %d, have %d", ErrShortBuffer, size, len(b))
	}
	payload := b[headerSize:size]

	switch id {
	case MsgSetupChanged:
		return SetupChanged{}, nil
	case MsgObjectAdded, MsgObjectRemoved:
		info, err := decodeAddedRemoved(id, payload, order)
		if err != nil {
			return nil, err
		}
		if id == MsgObjectAdded {
			return ObjectAdded{info}, nil
		}
		return ObjectRemoved{info}, nil
	case MsgPropertyChanged:
		return decodePropertyChanged(payload, order)
	case MsgThruConnectionsChanged:
		return ThruConnectionsChanged{}, nil
	case MsgSerialPortOwnerChanged:
		return SerialPortOwnerChanged{}, nil
	case MsgIOError:
		if len(payload) < 8 {
			return nil, fmt.Errorf("%w: io error payload %d bytes", ErrShortBuffer, len(payload))
		}
		return IOError{
			DriverDevice: Device{Object: Object(order.Uint32(payload))},
			ErrorCode:    int32(order.Uint32(payload[4:])),
		}, nil
	default:
		return nil, &DecodeError{MessageID: id, Err: ErrUnknownMessage}
	}
}

func decodeAddedRemoved(id MessageID, payload []byte, order binary.ByteOrder) (AddedRemovedInfo, error) {
	if len(payload) < 16 {
		return AddedRemovedInfo{}, fmt.Errorf("%w: add/remove payload %d bytes", ErrShortBuffer, len(payload))
	}
	parentType, perr := ParseObjectType(int32(order.Uint32(payload[4:])))
	childType, cerr := ParseObjectType(int32(order.Uint32(payload[12:])))
	if perr != nil || cerr != nil {
		return AddedRemovedInfo{}, &DecodeError{MessageID: id, Err: ErrUnknownObjectType}
	}
	return AddedRemovedInfo{
		Parent:     Object(order.Uint32(payload)),
		ParentType: parentType,
		Child:      Object(order.Uint32(payload[8:])),
		ChildType:  childType,
	}, nil
}

func decodePropertyChanged(payload []byte, order binary.ByteOrder) (Notification, error) {
	if len(payload) < 10 {
		return nil, fmt.Errorf("%w: property payload %d bytes", ErrShortBuffer, len(payload))
	}
	objectType, err := ParseObjectType(int32(order.Uint32(payload[4:])))
	if err != nil {
		return nil, &DecodeError{MessageID: MsgPropertyChanged, Err: ErrUnknownObjectType}
	}
	n := int(order.Uint16(payload[8:]))
	if 10+n > len(payload) {
		return nil, fmt.Errorf("%w: property name needs %d bytes", ErrShortBuffer, n)
	}
	return PropertyChanged{
		Object:       Object(order.Uint32(payload)),
		ObjectType:   objectType,
		PropertyName: string(payload[10 : 10+n]),
	}, nil
}

// Encode writes n in the format Decode reads.
func Encode(n Notification, order binary.ByteOrder) ([]byte, error) {
	var payload []byte
	switch v := n.(type) {
	case SetupChanged, ThruConnectionsChanged, SerialPortOwnerChanged:
	case ObjectAdded:
		payload = encodeAddedRemoved(v.AddedRemovedInfo, order)
	case ObjectRemoved:
		payload = encodeAddedRemoved(v.AddedRemovedInfo, order)
	case PropertyChanged:
		if len(v.PropertyName) > 0xffff {
			return nil, fmt.Errorf("property name too long: %d bytes", len(v.PropertyName))
		}
		payload = make([]byte, 10+len(v.PropertyName))
		order.PutUint32(payload, uint32(v.Object))
		order.PutUint32(payload[4:], uint32(v.ObjectType))
		order.PutUint16(payload[8:], uint16(len(v.PropertyName)))
		copy(payload[10:], v.PropertyName)
	case IOError:
		payload = make([]byte, 8)
		order.PutUint32(payload, uint32(v.DriverDevice.Object))
		order.PutUint32(payload[4:], uint32(v.ErrorCode))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, n)
	}

	b := make([]byte, headerSize+len(payload))
	order.PutUint32(b, uint32(n.MessageID()))
	order.PutUint32(b[4:], uint32(len(b)))
	copy(b[headerSize:], payload)
	return b, nil
}

func encodeAddedRemoved(info AddedRemovedInfo, order binary.ByteOrder) []byte {
	payload := make([]byte, 16)
	order.PutUint32(payload, uint32(info.Parent))
	order.PutUint32(payload[4:], uint32(info.ParentType))
	order.PutUint32(payload[8:], uint32(info.Child))
	order.PutUint32(payload[12:], uint32(info.ChildType))
	return payload
}
