// Package transport provides an in-process stand-in for the host MIDI
// transmit and receive calls.
//
// A Router owns named virtual destinations. Send hands it an encoded packet
// list; a delivery goroutine per destination re-reads the bytes as a
// packet.PacketList and passes the view to every subscriber. As with the host,
// the view handed to a ReadFunc is only valid until the callback returns.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ssargent/midiwire/pkg/notification"
	"github.com/ssargent/midiwire/pkg/packet"
)

var (
	// ErrUnknownEndpoint is returned for a destination that was never created.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrEndpointExists is returned when creating a destination twice.
	ErrEndpointExists = errors.New("endpoint already exists")
	// ErrListTooLarge is returned by Send for lists over MaxPacketListSize.
	ErrListTooLarge = errors.New("packet list exceeds maximum size")
	// ErrLayoutMismatch is returned by Send for lists encoded differently
	// from the router.
	ErrLayoutMismatch = errors.New("packet list layout does not match router")
	// ErrClosed is returned once the router has been closed.
	ErrClosed = errors.New("router closed")
)

// ReadFunc receives packet lists delivered to a destination.
type ReadFunc func(endpoint string, list packet.PacketList)

// NotifyFunc receives system notifications posted by the router.
type NotifyFunc func(notification.Notification)

// Config holds configuration for a Router.
type Config struct {
	Layout         packet.Layout // Layout of every list sent through the router
	EnforceMaxSize bool          // Reject lists larger than packet.MaxPacketListSize
	QueueSize      int           // Pending lists per destination (default 64)
	Logger         *log.Logger   // Delivery log; nil disables it
}

// Router routes packet lists to virtual destinations.
type Router struct {
	config Config

	mutex      sync.RWMutex
	dests      map[string]*destination
	notifiers  []NotifyFunc
	nextObject notification.Object
	closed     bool
}

type destination struct {
	name        string
	object      notification.Object
	queue       chan []byte
	done        chan struct{}
	stopped     chan struct{}
	subscribers []ReadFunc
}

// NewRouter creates a router with no destinations.
func NewRouter(config Config) (*Router, error) {
	if err := config.Layout.Validate(); err != nil {
		return nil, err
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	return &Router{
		config:     config,
		dests:      make(map[string]*destination),
		nextObject: 1,
	}, nil
}

// Layout returns the packet layout the router expects.
func (r *Router) Layout() packet.Layout {
	return r.config.Layout
}

// Notify registers fn to receive setup notifications.
func (r *Router) Notify(fn NotifyFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.notifiers = append(r.notifiers, fn)
}

// CreateDestination adds a virtual destination and posts ObjectAdded.
func (r *Router) CreateDestination(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownEndpoint)
	}

	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return ErrClosed
	}
	if _, ok := r.dests[name]; ok {
		r.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrEndpointExists, name)
	}
	d := &destination{
		name:    name,
		object:  r.nextObject,
		queue:   make(chan []byte, r.config.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	r.nextObject++
	r.dests[name] = d
	r.mutex.Unlock()

	go r.deliver(d)

	r.post(notification.ObjectAdded{AddedRemovedInfo: notification.AddedRemovedInfo{
		Parent:     0,
		ParentType: notification.ObjectTypeOther,
		Child:      d.object,
		ChildType:  notification.ObjectTypeDestination,
	}})
	return nil
}

// RemoveDestination stops delivery to a destination and posts ObjectRemoved.
// Lists still queued for it are dropped.
func (r *Router) RemoveDestination(name string) error {
	r.mutex.Lock()
	d, ok := r.dests[name]
	if !ok {
		r.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	delete(r.dests, name)
	r.mutex.Unlock()

	close(d.done)
	<-d.stopped

	r.post(notification.ObjectRemoved{AddedRemovedInfo: notification.AddedRemovedInfo{
		Parent:     0,
		ParentType: notification.ObjectTypeOther,
		Child:      d.object,
		ChildType:  notification.ObjectTypeDestination,
	}})
	return nil
}

// Destinations returns the names of all destinations in sorted order.
func (r *Router) Destinations() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.dests))
	for name := range r.dests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers fn to receive every list delivered to the destination.
func (r *Router) Subscribe(name string, fn ReadFunc) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	d, ok := r.dests[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	d.subscribers = append(d.subscribers, fn)
	return nil
}

// Send queues a packet list for delivery. The list bytes are copied, so the
// caller may reuse its buffer as soon as Send returns.
func (r *Router) Send(ctx context.Context, name string, list packet.PacketList) error {
	layout := list.Layout()
	if !layout.Equal(r.config.Layout) {
		return fmt.Errorf("%w: %v, want %v", ErrLayoutMismatch, layout, r.config.Layout)
	}
	if r.config.EnforceMaxSize && list.Size() > packet.MaxPacketListSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrListTooLarge, list.Size(), packet.MaxPacketListSize)
	}

	r.mutex.RLock()
	if r.closed {
		r.mutex.RUnlock()
		return ErrClosed
	}
	d, ok := r.dests[name]
	r.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}

	raw := make([]byte, list.Size())
	copy(raw, list.Bytes())

	select {
	case d.queue <- raw:
		return nil
	case <-d.done:
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush drops every list that is queued but not yet delivered and returns how
// many were dropped.
func (r *Router) Flush() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	dropped := 0
	for _, d := range r.dests {
	drain:
		for {
			select {
			case <-d.queue:
				dropped++
			default:
				break drain
			}
		}
	}
	return dropped
}

// Close removes every destination. Further sends fail with ErrClosed.
func (r *Router) Close() error {
	r.mutex.Lock()
	r.closed = true
	r.mutex.Unlock()

	for _, name := range r.Destinations() {
		if err := r.RemoveDestination(name); err != nil && !errors.Is(err, ErrUnknownEndpoint) {
			return err
		}
	}
	return nil
}

func (r *Router) deliver(d *destination) {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		case raw := <-d.queue:
			list, err := packet.ParsePacketList(raw, r.config.Layout)
			if err != nil {
				r.logf("transport: dropping list for %s: %v", d.name, err)
				continue
			}
			r.mutex.RLock()
			subscribers := append([]ReadFunc(nil), d.subscribers...)
			r.mutex.RUnlock()

			r.logf("transport: delivering %d packets (%d bytes) to %s", list.Length(), list.Size(), d.name)
			for _, fn := range subscribers {
				fn(d.name, list)
			}
		}
	}
}

// post hands a notification to the registered notifiers the way the host
// does: encoded as a raw message and decoded on the receiving side.
func (r *Router) post(n notification.Notification) {
	r.mutex.RLock()
	notifiers := append([]NotifyFunc(nil), r.notifiers...)
	r.mutex.RUnlock()
	if len(notifiers) == 0 {
		return
	}

	raw, err := notification.Encode(n, r.config.Layout.Order)
	if err != nil {
		r.logf("transport: encoding notification: %v", err)
		return
	}
	decoded, err := notification.Decode(raw, r.config.Layout.Order)
	if err != nil {
		r.logf("transport: decoding notification: %v", err)
		return
	}
	for _, fn := range notifiers {
		fn(decoded)
	}
}

func (r *Router) logf(format string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Printf(format, args...)
	}
}
