// Package notify provides an in-process schema-change notification bus
// for bound table cache invalidation.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tesseradb/tessera/pkg/types"
)

// EventType represents the kind of schema change.
type EventType int

const (
	PartitionAttached EventType = iota
	PartitionDetached
	BoundChanged
	TableDropped
)

// Event is one schema-change notification.
type Event struct {
	Type      EventType
	Table     types.TableID // the partitioned table whose bound set changed
	Timestamp int64
}

// Notifier is an in-process pub/sub bus for schema-change events.
type Notifier struct {
	subscribers sync.Map
	bufferSize  int
}

// NewNotifier creates a new notifier instance.
func NewNotifier(bufferSize int) *Notifier {
	return &Notifier{bufferSize: bufferSize}
}

// Publish sends an event to all matching subscribers.
// Non-blocking: if a subscriber's channel is full, the event is dropped.
func (n *Notifier) Publish(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	n.subscribers.Range(func(key, value interface{}) bool {
		sub := value.(*Subscriber)
		if sub.matches(ev.Table) {
			sub.send(ev)
		}
		return true
	})
}

// Subscribe adds a subscriber for the given tables. An empty filter
// receives every event.
func (n *Notifier) Subscribe(id string, tables ...types.TableID) *Subscriber {
	sub := &Subscriber{
		ID:     id,
		Tables: tables,
		Ch:     make(chan Event, n.bufferSize),
	}
	n.subscribers.Store(sub.ID, sub)
	return sub
}

// SubscribeAutoID adds a subscriber with a generated ID.
func (n *Notifier) SubscribeAutoID(tables ...types.TableID) *Subscriber {
	return n.Subscribe("sub_"+uuid.NewString(), tables...)
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	if value, ok := n.subscribers.LoadAndDelete(subID); ok {
		value.(*Subscriber).shut()
	}
}

// Subscriber represents one event consumer.
type Subscriber struct {
	ID     string
	Tables []types.TableID
	Ch     chan Event

	// mu orders sends against the close in shut: a publisher that got
	// this subscriber out of the map before Unsubscribe removed it must
	// not send on the closed channel.
	mu     sync.Mutex
	closed bool
}

// send delivers the event unless the channel is full or closed.
func (s *Subscriber) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.Ch <- ev:
	default:
		// Channel full - drop event, do NOT block
	}
}

func (s *Subscriber) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.Ch)
	}
}

func (s *Subscriber) matches(table types.TableID) bool {
	if len(s.Tables) == 0 {
		return true
	}
	for _, t := range s.Tables {
		if t == table {
			return true
		}
	}
	return false
}
