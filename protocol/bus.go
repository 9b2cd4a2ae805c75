package protocol

import (
	"sync"

	"go.uber.org/zap"
)

// Bus is a shared broadcast channel between realms. Posting copies the
// serialized message to every listener's mailbox; each listener drains its
// mailbox on its own goroutine, preserving post order.
type Bus struct {
	listeners map[uint64]*mailbox
	next      uint64
	mu        sync.Mutex
	closed    bool
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[uint64]*mailbox)}
}

// Post serializes e and delivers it to every listener.
func (b *Bus) Post(e Envelope) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}
	b.PostRaw(data)
	return nil
}

// PostRaw delivers an already serialized message. Messages posted to a
// closed bus are dropped.
func (b *Bus) PostRaw(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		Logger().Debug("dropping message posted to closed bus", zap.Int("bytes", len(data)))
		return
	}
	for _, mb := range b.listeners {
		msg := make([]byte, len(data))
		copy(msg, data)
		mb.push(msg)
	}
}

// Listen registers fn to receive every message posted after this call.
// The returned function stops delivery; messages still queued are dropped.
func (b *Bus) Listen(fn func(data []byte)) (cancel func()) {
	mb := newMailbox(fn)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.next
	b.next++
	b.listeners[id] = mb
	b.mu.Unlock()

	go mb.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
			mb.stop()
		})
	}
}

// Close stops every listener. Later posts are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	listeners := b.listeners
	b.listeners = make(map[uint64]*mailbox)
	b.mu.Unlock()

	for _, mb := range listeners {
		mb.stop()
	}
}

// mailbox is an unbounded FIFO drained by one goroutine.
type mailbox struct {
	fn     func([]byte)
	signal chan struct{}
	done   chan struct{}
	queue  [][]byte
	mu     sync.Mutex
	once   sync.Once
}

func newMailbox(fn func([]byte)) *mailbox {
	return &mailbox{
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *mailbox) push(msg []byte) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *mailbox) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			m.mu.Lock()
			if len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			msg := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()

			select {
			case <-m.done:
				return
			default:
			}
			m.deliver(msg)
		}
	}
}

func (m *mailbox) deliver(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("bus listener panicked", zap.Any("recovered", r))
		}
	}()
	m.fn(msg)
}
