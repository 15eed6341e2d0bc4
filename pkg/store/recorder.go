package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/transport"
)

// Recorder journals every packet list delivered to the endpoints it follows.
type Recorder struct {
	writer   *JournalWriter
	logger   *log.Logger
	recorded atomic.Int64
	failed   atomic.Int64
}

// NewRecorder creates a recorder writing to w. Append failures are logged to
// logger when it is not nil.
func NewRecorder(w *JournalWriter, logger *log.Logger) *Recorder {
	return &Recorder{writer: w, logger: logger}
}

// Follow subscribes the recorder to a router destination.
func (r *Recorder) Follow(router *transport.Router, endpoint string) error {
	return router.Subscribe(endpoint, r.record)
}

// record is a transport.ReadFunc. The list is written before the callback
// returns, while the view is still valid.
func (r *Recorder) record(endpoint string, list packet.PacketList) {
	if _, err := r.writer.Append(endpoint, list); err != nil {
		r.failed.Add(1)
		if r.logger != nil {
			r.logger.Printf("recorder: journaling list for %s: %v", endpoint, err)
		}
		return
	}
	r.recorded.Add(1)
}

// Recorded returns how many lists have been journaled.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Failed returns how many lists could not be journaled.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// ReplayOptions controls Replay.
type ReplayOptions struct {
	Layout packet.Layout // Layout the journal was captured with
	// Endpoint overrides the destination recorded in each frame when set.
	Endpoint string
	// Pace waits between frames for the time that separated their captures.
	Pace bool
}

// Replay sends every remaining frame of the journal to router and returns the
// number of lists sent.
func Replay(ctx context.Context, reader *JournalReader, router *transport.Router, opts ReplayOptions) (int, error) {
	sent := 0
	var last time.Time
	for {
		frame, err := reader.ReadNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sent, nil
			}
			return sent, fmt.Errorf("reading frame at offset %d: %w", reader.Offset(), err)
		}

		list, err := frame.PacketList(opts.Layout)
		if err != nil {
			return sent, fmt.Errorf("frame at offset %d: %w", reader.Offset(), err)
		}

		if opts.Pace && !last.IsZero() {
			if wait := frame.CapturedAt().Sub(last); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return sent, ctx.Err()
				}
			}
		}
		last = frame.CapturedAt()

		endpoint := opts.Endpoint
		if endpoint == "" {
			endpoint = string(frame.Endpoint)
		}
		if err := router.Send(ctx, endpoint, list); err != nil {
			return sent, err
		}
		sent++
	}
}
