// Package storage keeps named packet-list clips in a pebble database.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/midiwire/pkg/packet"
)

var (
	ErrClipNotFound = errors.New("clip not found")
	ErrInvalidClip  = errors.New("invalid clip")
)

const maxClipName = 1<<16 - 1

// Clip is a stored packet list. List aliases memory owned by the Clip.
type Clip struct {
	ID      ksuid.KSUID
	Name    string
	Created time.Time
	List    packet.PacketList
}

// ClipInfo describes a clip without its payload.
type ClipInfo struct {
	ID      ksuid.KSUID
	Name    string
	Created time.Time
	Packets int
	Size    int
}

// ClipStore stores clips keyed by KSUID, so keys sort by creation time.
type ClipStore struct {
	db     *pebble.DB
	layout packet.Layout
}

// NewClipStore opens (or creates) the clip database at path. Every clip is
// stored and parsed with layout.
func NewClipStore(path string, layout packet.Layout) (*ClipStore, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open clip store: %w", err)
	}
	return &ClipStore{db: db, layout: layout}, nil
}

// Layout returns the packet layout of stored clips.
func (s *ClipStore) Layout() packet.Layout {
	return s.layout
}

// SaveClip stores list under a new ID.
func (s *ClipStore) SaveClip(name string, list packet.PacketList) (ksuid.KSUID, error) {
	if len(name) > maxClipName {
		return ksuid.Nil, fmt.Errorf("%w: name is %d bytes", ErrInvalidClip, len(name))
	}
	if l := list.Layout(); !l.Equal(s.layout) {
		return ksuid.Nil, fmt.Errorf("%w: layout %v, want %v", ErrInvalidClip, l, s.layout)
	}

	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), encodeClip(name, list.Bytes()), pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to save clip: %w", err)
	}
	return id, nil
}

// Clip loads the clip with the given ID.
func (s *ClipStore) Clip(id ksuid.KSUID) (*Clip, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClipNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	return s.decodeClip(id, data)
}

// ListClips returns every stored clip, oldest first.
func (s *ClipStore) ListClips() ([]ClipInfo, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var infos []ClipInfo
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: key %x", ErrInvalidClip, iter.Key())
		}
		clip, err := s.decodeClip(id, iter.Value())
		if err != nil {
			return nil, err
		}
		infos = append(infos, ClipInfo{
			ID:      clip.ID,
			Name:    clip.Name,
			Created: clip.Created,
			Packets: clip.List.Length(),
			Size:    clip.List.Size(),
		})
	}
	return infos, iter.Error()
}

// DeleteClip removes a clip. Deleting a missing clip returns ErrClipNotFound.
func (s *ClipStore) DeleteClip(id ksuid.KSUID) error {
	_, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrClipNotFound, id)
		}
		return err
	}
	closer.Close()
	return s.db.Delete(id.Bytes(), pebble.Sync)
}

// Close closes the database.
func (s *ClipStore) Close() error {
	return s.db.Close()
}

// encodeClip lays a clip out as [nameLen u16][name][list].
func encodeClip(name string, list []byte) []byte {
	buf := make([]byte, 2+len(name)+len(list))
	binary.LittleEndian.PutUint16(buf, uint16(len(name)))
	copy(buf[2:], name)
	copy(buf[2+len(name):], list)
	return buf
}

// decodeClip copies data, which pebble only lends until the closer runs.
func (s *ClipStore) decodeClip(id ksuid.KSUID, data []byte) (*Clip, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: %s: value too short", ErrInvalidClip, id)
	}
	nameLen := int(binary.LittleEndian.Uint16(data))
	if len(data) < 2+nameLen {
		return nil, fmt.Errorf("%w: %s: name overruns value", ErrInvalidClip, id)
	}
	raw := make([]byte, len(data)-2-nameLen)
	copy(raw, data[2+nameLen:])

	list, err := packet.ParsePacketList(raw, s.layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidClip, id, err)
	}
	return &Clip{
		ID:      id,
		Name:    string(data[2 : 2+nameLen]),
		Created: id.Time(),
		List:    list,
	}, nil
}
