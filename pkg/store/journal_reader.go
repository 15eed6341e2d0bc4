package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/ssargent/midiwire/pkg/codec"
)

// Frames larger than this are treated as corruption rather than allocated.
const (
	maxEndpointSize = 4 << 10
	maxListSize     = 16 << 20
)

// JournalReader provides sequential access to frames in a journal file
type JournalReader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.FrameCodec
	offset int64
	config JournalReaderConfig
}

// NewJournalReader creates a new journal reader for the specified file
func NewJournalReader(config JournalReaderConfig) (*JournalReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &JournalReader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  codec.NewFrameCodec(),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the frame at the current offset. It returns io.EOF at a
// clean end of file and ErrCorruption for a torn or damaged frame.
func (r *JournalReader) ReadNext() (*codec.Frame, error) {
	frame, n, err := r.readFrame(r.reader)
	if err != nil {
		return nil, err
	}
	r.offset += n
	return frame, nil
}

// ReadAt reads the frame starting at offset without moving the read position.
func (r *JournalReader) ReadAt(offset int64) (*codec.Frame, error) {
	section := io.NewSectionReader(r.file, offset, 1<<62)
	frame, _, err := r.readFrame(section)
	if errors.Is(err, io.EOF) {
		return nil, ErrCorruption
	}
	return frame, err
}

func (r *JournalReader) readFrame(src io.Reader) (*codec.Frame, int64, error) {
	header := make([]byte, codec.HeaderSize)
	if _, err := io.ReadFull(src, header); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, 0, ErrCorruption
		}
		return nil, 0, err
	}

	endpointSize := int64(binary.LittleEndian.Uint32(header[4:8]))
	listSize := int64(binary.LittleEndian.Uint32(header[8:12]))
	if endpointSize > maxEndpointSize || listSize > maxListSize {
		return nil, 0, ErrCorruption
	}

	data := make([]byte, int64(codec.HeaderSize)+endpointSize+listSize)
	copy(data, header)
	if _, err := io.ReadFull(src, data[codec.HeaderSize:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, ErrCorruption
		}
		return nil, 0, err
	}

	frame, err := r.codec.Decode(data)
	if err != nil {
		return nil, 0, err
	}
	if err := frame.Validate(); err != nil {
		return nil, 0, ErrCorruption
	}

	return frame, int64(len(data)), nil
}

// Seek sets the read offset
func (r *JournalReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader = bufio.NewReader(r.file) // Recreate reader to clear buffer
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *JournalReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining frames
func (r *JournalReader) Iterator() FrameIterator {
	return &journalFrameIterator{reader: r}
}

// Close closes the journal reader
func (r *JournalReader) Close() error {
	return r.file.Close()
}

// journalFrameIterator implements FrameIterator for streaming access
type journalFrameIterator struct {
	reader *JournalReader
	frame  *codec.Frame
	offset int64
	err    error
}

func (it *journalFrameIterator) Next() bool {
	it.offset = it.reader.Offset()
	it.frame, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *journalFrameIterator) Frame() *codec.Frame {
	return it.frame
}

// Offset returns the offset of the current frame
func (it *journalFrameIterator) Offset() int64 {
	return it.offset
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *journalFrameIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *journalFrameIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
