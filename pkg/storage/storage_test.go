package storage

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/midiwire/pkg/packet"
)

var layout = packet.Layout{Align: packet.Align1, Order: binary.LittleEndian}

func newStore(t *testing.T) *ClipStore {
	t.Helper()
	s, err := NewClipStore(filepath.Join(t.TempDir(), "clips"), layout)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func chord() packet.PacketList {
	return packet.NewPacketBuffer(layout).
		WithData(0, []byte{0x90, 0x3c, 0x7f}).
		WithData(0, []byte{0x90, 0x40, 0x7f}).
		WithData(0, []byte{0x90, 0x43, 0x7f}).
		List()
}

func TestClipStore_SaveAndLoad(t *testing.T) {
	s := newStore(t)

	id, err := s.SaveClip("c-major", chord())
	require.NoError(t, err)
	assert.False(t, id.IsNil())

	clip, err := s.Clip(id)
	require.NoError(t, err)
	assert.Equal(t, id, clip.ID)
	assert.Equal(t, "c-major", clip.Name)
	assert.Equal(t, id.Time(), clip.Created)
	assert.Equal(t, 3, clip.List.Length())
	assert.Equal(t, chord().Bytes(), clip.List.Bytes())
}

func TestClipStore_NotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.Clip(ksuid.New())
	assert.ErrorIs(t, err, ErrClipNotFound)

	err = s.DeleteClip(ksuid.New())
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestClipStore_ListAndDelete(t *testing.T) {
	s := newStore(t)

	empty, err := s.ListClips()
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := s.SaveClip("first", chord())
	require.NoError(t, err)
	second, err := s.SaveClip("second", packet.NewPacketBuffer(layout).List())
	require.NoError(t, err)

	infos, err := s.ListClips()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byID := map[ksuid.KSUID]ClipInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.Equal(t, "first", byID[first].Name)
	assert.Equal(t, 3, byID[first].Packets)
	assert.Equal(t, chord().Size(), byID[first].Size)
	assert.Equal(t, 0, byID[second].Packets)
	assert.Equal(t, packet.ListHeaderSize, byID[second].Size)

	require.NoError(t, s.DeleteClip(first))
	_, err = s.Clip(first)
	assert.ErrorIs(t, err, ErrClipNotFound)

	infos, err = s.ListClips()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, second, infos[0].ID)
}

func TestClipStore_LayoutMismatch(t *testing.T) {
	s := newStore(t)

	other := packet.Layout{Align: packet.Align4, Order: binary.BigEndian}
	_, err := s.SaveClip("wrong", packet.NewPacketBuffer(other).WithData(0, []byte{0xf8}).List())
	assert.ErrorIs(t, err, ErrInvalidClip)
}

func TestClipStore_NativeEndianList(t *testing.T) {
	if binary.NativeEndian.Uint16([]byte{1, 0}) != 1 {
		t.Skip("host is not little-endian")
	}
	s := newStore(t)

	native := packet.Layout{Align: layout.Align, Order: binary.NativeEndian}
	list := packet.NewPacketBuffer(native).WithData(0, []byte{0x90, 0x40, 0x7f}).List()
	id, err := s.SaveClip("native", list)
	require.NoError(t, err)

	clip, err := s.Clip(id)
	require.NoError(t, err)
	assert.Equal(t, list.Bytes(), clip.List.Bytes())
}

func TestClipStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips")
	s, err := NewClipStore(path, layout)
	require.NoError(t, err)
	id, err := s.SaveClip("persisted", chord())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewClipStore(path, layout)
	require.NoError(t, err)
	defer s.Close()

	clip, err := s.Clip(id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", clip.Name)
}

func TestNewClipStore_InvalidLayout(t *testing.T) {
	_, err := NewClipStore(filepath.Join(t.TempDir(), "clips"), packet.Layout{Align: 3, Order: binary.LittleEndian})
	assert.ErrorIs(t, err, packet.ErrInvalidLayout)
}

func TestEncodeClip(t *testing.T) {
	data := encodeClip("ab", []byte{1, 0, 0, 0})
	assert.Equal(t, []byte{2, 0, 'a', 'b', 1, 0, 0, 0}, data)

	s := &ClipStore{layout: layout}
	_, err := s.decodeClip(ksuid.New(), []byte{9})
	assert.ErrorIs(t, err, ErrInvalidClip)
	_, err = s.decodeClip(ksuid.New(), []byte{9, 0, 'a'})
	assert.ErrorIs(t, err, ErrInvalidClip)
}
