package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
	"github.com/wippyai/wasm-bridge/metrics"
)

// Handler receives inbound events.
type Handler func(event.Event)

// Bridge is the event interface handed to callers once an instance is ready.
type Bridge interface {
	// EnqueueOutbound sends an event towards the foreign module.
	EnqueueOutbound(ev event.Event) error
	// SubscribeInbound registers h for events produced by the foreign module.
	SubscribeInbound(h Handler) (unsubscribe func())
}

// compactThreshold bounds the dead prefix kept before the backing slice is reused.
const compactThreshold = 64

// Queue is a two-directional event queue for one bridge instance.
// It is safe for concurrent use.
type Queue struct {
	subs     map[uint64]Handler
	id       string
	outbound []event.Event
	head     int
	nextSub  uint64
	mu       sync.Mutex
	disposed bool
}

// NewQueue creates an empty queue for the given instance.
func NewQueue(id string) *Queue {
	return &Queue{
		id:   id,
		subs: make(map[uint64]Handler),
	}
}

// ID returns the owning instance identifier.
func (q *Queue) ID() string {
	return q.id
}

// EnqueueOutbound normalizes ev and appends it to the outbound tail.
// Only malformed events are rejected; enqueueing after Dispose is a no-op.
func (q *Queue) EnqueueOutbound(ev event.Event) error {
	n, err := event.Normalize(ev)
	if err != nil {
		Logger().Warn("rejecting outbound event",
			zap.String("instance", q.id),
			zap.Error(err))
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.disposed {
		return nil
	}
	q.outbound = append(q.outbound, n)
	metrics.Events.WithLabelValues("outbound").Inc()
	return nil
}

// PollOutbound pops the head of the outbound queue. It returns the zero
// Event and false when the queue is empty.
func (q *Queue) PollOutbound() (event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.outbound) {
		return event.Event{}, false
	}
	ev := q.outbound[q.head]
	q.outbound[q.head] = event.Event{}
	q.head++

	if q.head == len(q.outbound) {
		q.outbound = q.outbound[:0]
		q.head = 0
	} else if q.head >= compactThreshold && q.head*2 >= len(q.outbound) {
		n := copy(q.outbound, q.outbound[q.head:])
		q.outbound = q.outbound[:n]
		q.head = 0
	}
	return ev, true
}

// Len returns the number of buffered outbound events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.outbound) - q.head
}

// DeliverInbound dispatches ev to every current subscriber in the caller's
// goroutine. Handler panics are recovered and logged.
func (q *Queue) DeliverInbound(ev event.Event) {
	q.mu.Lock()
	handlers := make([]Handler, 0, len(q.subs))
	for _, h := range q.subs {
		handlers = append(handlers, h)
	}
	q.mu.Unlock()

	metrics.Events.WithLabelValues("inbound").Inc()
	for _, h := range handlers {
		q.dispatch(h, ev)
	}
}

func (q *Queue) dispatch(h Handler, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			Logger().Error("inbound handler failed",
				zap.String("instance", q.id),
				zap.Stringer("event", ev),
				zap.Error(errors.HandlerPanic(r)))
		}
	}()
	h(ev)
}

// SubscribeInbound registers h and returns a function removing it.
// The returned function is idempotent.
func (q *Queue) SubscribeInbound(h Handler) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.disposed {
		return func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			q.mu.Unlock()
		})
	}
}

// Dispose clears buffered events and subscribers.
func (q *Queue) Dispose() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.disposed = true
	q.outbound = nil
	q.head = 0
	clear(q.subs)
}
