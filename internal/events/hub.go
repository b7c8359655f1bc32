// Package events fans session changes out to in-process subscribers:
// the SSE stream, the Telegram notifier and the cross-instance Redis bridge.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindSessionCreated   Kind = "session.created"
	KindStudentResponded Kind = "student.responded"
	KindSessionCanceled  Kind = "session.canceled"
	KindSessionCompleted Kind = "session.completed"
	KindSessionsCleared  Kind = "sessions.cleared"
)

type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	SessionID   string    `json:"session_id,omitempty"`
	ProfessorID int64     `json:"professor_id,omitempty"`
	StudentIDs  []int64   `json:"student_ids,omitempty"`
	StudentID   int64     `json:"student_id,omitempty"` // the responding student
	Status      string    `json:"status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Origin      string    `json:"origin"`
	At          time.Time `json:"at"`
}

// Concerns reports whether the event is addressed to userID. Cleared events
// concern everyone.
func (e Event) Concerns(userID int64) bool {
	if e.Kind == KindSessionsCleared || e.ProfessorID == userID || e.StudentID == userID {
		return true
	}
	for _, id := range e.StudentIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type subscriber struct {
	ch chan Event
}

// Hub is a non-blocking publish/subscribe fan-out. A subscriber whose buffer
// is full misses the event; Dropped counts those misses.
type Hub struct {
	origin  string
	logger  *zap.Logger
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
	dropped atomic.Int64
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		origin: uuid.NewString(),
		logger: logger,
		subs:   make(map[uint64]*subscriber),
	}
}

// Origin identifies this process in events relayed between instances.
func (h *Hub) Origin() string {
	return h.origin
}

// Publish stamps the event with an id, time and origin when missing and
// delivers it to every subscriber.
func (h *Hub) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Origin == "" {
		e.Origin = h.origin
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for id, sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
			h.logger.Warn("Event dropped for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.String("kind", string(e.Kind)),
			)
		}
	}
}

// Subscribe registers a buffered subscriber. The returned func unsubscribes
// and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscriber{ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel. Publishing afterwards is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
