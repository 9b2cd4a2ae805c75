package hooks

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/event"
)

// Functions is one instance's pair of foreign-module-facing callbacks.
// Its address is its identity in the Global registry.
type Functions struct {
	Poll    func() (event.Event, bool)
	Receive func(event.Event)
	Owner   string
}

// Global is the shared slot pair read by the fixed entry points.
type Global struct {
	poll      *Functions
	receive   *Functions
	fallbacks []*fallback
	mu        sync.Mutex
}

type fallback struct {
	fn func(event.Event)
}

// Default is the process-wide registry. Its entry points exist before any
// loader runs, so a module calling them early simply sees an empty queue.
var Default = NewGlobal()

// NewGlobal creates an empty registry. Tests use private registries; the
// application uses Default.
func NewGlobal() *Global {
	return &Global{}
}

// Claim points both slots at f and returns the previous poll target if it
// belonged to someone else.
func (g *Global) Claim(f *Functions) (displaced *Functions) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poll != nil && g.poll != f {
		displaced = g.poll
	} else if g.receive != nil && g.receive != f {
		displaced = g.receive
	}
	g.poll = f
	g.receive = f
	return displaced
}

// Release clears each slot that still points at f. It reports whether any
// slot was cleared; false means another instance owns the hooks.
func (g *Global) Release(f *Functions) bool {
	if f == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	released := false
	if g.poll == f {
		g.poll = nil
		released = true
	}
	if g.receive == f {
		g.receive = nil
		released = true
	}
	return released
}

// Owns reports whether f currently holds either slot.
func (g *Global) Owns(f *Functions) bool {
	if f == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poll == f || g.receive == f
}

// Current returns the present poll and receive targets.
func (g *Global) Current() (poll, receive *Functions) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poll, g.receive
}

// Poll is the fixed poll entry point. It never blocks and returns the empty
// sentinel when no instance owns the hooks.
func (g *Global) Poll() (event.Event, bool) {
	g.mu.Lock()
	f := g.poll
	g.mu.Unlock()

	if f == nil || f.Poll == nil {
		return event.Event{}, false
	}
	return f.Poll()
}

// SetFallback routes inbound events that arrive while no instance owns the
// hooks to fn. The most recently installed fallback still in place handles
// each event; the returned function removes fn.
func (g *Global) SetFallback(fn func(event.Event)) (remove func()) {
	fb := &fallback{fn: fn}
	g.mu.Lock()
	g.fallbacks = append(g.fallbacks, fb)
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		g.fallbacks = slices.DeleteFunc(g.fallbacks, func(f *fallback) bool { return f == fb })
		g.mu.Unlock()
	}
}

// Receive is the fixed receive entry point. Events arriving while no
// instance owns the hooks go to the fallback, or are dropped without one.
func (g *Global) Receive(ev event.Event) {
	g.mu.Lock()
	f := g.receive
	var fb *fallback
	if n := len(g.fallbacks); n > 0 {
		fb = g.fallbacks[n-1]
	}
	g.mu.Unlock()

	if f != nil && f.Receive != nil {
		f.Receive(ev)
		return
	}
	if fb != nil {
		fb.fn(ev)
		return
	}
	Logger().Debug("dropping inbound event: no hook owner", zap.Stringer("event", ev))
}
