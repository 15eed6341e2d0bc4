// Package store persists captured packet lists in an append-only journal.
package store

import (
	"time"

	"github.com/ssargent/midiwire/pkg/codec"
)

// JournalWriterConfig holds configuration for the journal writer
type JournalWriterConfig struct {
	FilePath      string        // Path to the journal file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// JournalReaderConfig holds configuration for the journal reader
type JournalReaderConfig struct {
	FilePath    string // Path to the journal file
	StartOffset int64  // Offset to start reading from
}

// RecoveryResult reports what Recover found in a journal file
type RecoveryResult struct {
	FramesValidated int64
	FramesTruncated int64
	FileSizeBefore  int64
	FileSizeAfter   int64
	RecoveryTime    time.Duration
}

// FrameIterator provides streaming access to journal frames
type FrameIterator interface {
	Next() bool
	Frame() *codec.Frame
	Offset() int64
	Err() error
	Close() error
}

// Errors
var (
	ErrCorruption = &JournalError{"data corruption detected"}
	ErrClosed     = &JournalError{"journal closed"}
)

// JournalError represents a journal error
type JournalError struct {
	Message string
}

func (e *JournalError) Error() string {
	return e.Message
}
