package store

import (
	"errors"
	"io"
	"os"
	"time"
)

// Recover validates every frame in the journal at path and truncates the file
// after the last intact frame. A missing file is not an error.
func Recover(path string) (*RecoveryResult, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{RecoveryTime: time.Since(start)}, nil
		}
		return nil, err
	}

	reader, err := NewJournalReader(JournalReaderConfig{FilePath: path})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &RecoveryResult{
		FileSizeBefore: info.Size(),
		FileSizeAfter:  info.Size(),
	}

	var lastValidOffset int64
	var corruptionFound bool
	for {
		if _, err := reader.ReadNext(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			corruptionFound = true
			break
		}
		result.FramesValidated++
		lastValidOffset = reader.Offset()
	}

	if corruptionFound {
		file, err := os.OpenFile(path, os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
		if err := file.Truncate(lastValidOffset); err != nil {
			file.Close()
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
		result.FileSizeAfter = lastValidOffset
		result.FramesTruncated = 1 // Everything after the first bad frame is dropped
	}

	result.RecoveryTime = time.Since(start)
	return result, nil
}
