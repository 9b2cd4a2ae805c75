package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wippyai/wasm-bridge/event"
)

func queueFunctions(owner string, events ...event.Event) (*Functions, *[]event.Event) {
	pending := append([]event.Event(nil), events...)
	var received []event.Event
	return &Functions{
		Owner: owner,
		Poll: func() (event.Event, bool) {
			if len(pending) == 0 {
				return event.Event{}, false
			}
			ev := pending[0]
			pending = pending[1:]
			return ev, true
		},
		Receive: func(ev event.Event) { received = append(received, ev) },
	}, &received
}

func TestGlobal_EmptyEntryPoints(t *testing.T) {
	g := NewGlobal()
	if ev, ok := g.Poll(); ok || !ev.IsZero() {
		t.Errorf("Poll on empty registry = %v, %v", ev, ok)
	}
	g.Receive(event.NewTrigger())
}

func TestGlobal_ClaimRoutesAtCallTime(t *testing.T) {
	g := NewGlobal()
	a, aRecv := queueFunctions("a", event.NewViewModel("from-a"))
	b, bRecv := queueFunctions("b", event.NewViewModel("from-b"))

	if prev := g.Claim(a); prev != nil {
		t.Errorf("first claim displaced %v", prev.Owner)
	}
	g.Receive(event.NewTrigger())

	if prev := g.Claim(b); prev != a {
		t.Errorf("second claim displaced %v, want a", prev)
	}
	ev, ok := g.Poll()
	if !ok || ev.Payload != "from-b" {
		t.Errorf("Poll after b claimed = %v, %v", ev, ok)
	}
	g.Receive(event.NewTrigger())

	if len(*aRecv) != 1 || len(*bRecv) != 1 {
		t.Errorf("a received %d, b received %d", len(*aRecv), len(*bRecv))
	}
}

func TestGlobal_ReclaimBySameOwner(t *testing.T) {
	g := NewGlobal()
	a, _ := queueFunctions("a")
	g.Claim(a)
	if prev := g.Claim(a); prev != nil {
		t.Error("reclaim by same owner reported displacement")
	}
}

func TestGlobal_ReleaseIdentityChecked(t *testing.T) {
	g := NewGlobal()
	a, _ := queueFunctions("a")
	b, _ := queueFunctions("b")

	g.Claim(a)
	g.Claim(b)

	if g.Release(a) {
		t.Error("stale owner released the hooks")
	}
	if !g.Owns(b) || g.Owns(a) {
		t.Error("ownership changed by stale release")
	}
	if !g.Release(b) {
		t.Error("owner could not release")
	}
	poll, recv := g.Current()
	if poll != nil || recv != nil {
		t.Error("slots not cleared")
	}
	if g.Release(b) {
		t.Error("double release reported success")
	}
	if g.Release(nil) || g.Owns(nil) {
		t.Error("nil functions treated as owner")
	}
}

func TestGlobal_FallbackWhenOwnerless(t *testing.T) {
	g := NewGlobal()
	var orphaned []event.Event
	remove := g.SetFallback(func(ev event.Event) { orphaned = append(orphaned, ev) })

	a, aRecv := queueFunctions("a")
	g.Claim(a)
	g.Receive(event.NewViewModel("owned"))
	g.Release(a)
	g.Receive(event.NewViewModel("orphan"))

	if len(*aRecv) != 1 || (*aRecv)[0].Payload != "owned" {
		t.Errorf("owner received %v", *aRecv)
	}
	if len(orphaned) != 1 || orphaned[0].Payload != "orphan" {
		t.Fatalf("fallback received %v", orphaned)
	}

	// The newest fallback handles events; removing it uncovers the older one.
	var later []event.Event
	removeLater := g.SetFallback(func(ev event.Event) { later = append(later, ev) })
	g.Receive(event.NewTrigger())
	if len(later) != 1 || len(orphaned) != 1 {
		t.Errorf("later fallback got %d, first got %d", len(later), len(orphaned))
	}

	removeLater()
	g.Receive(event.NewTrigger())
	if len(later) != 1 || len(orphaned) != 2 {
		t.Errorf("after removal later got %d, first got %d", len(later), len(orphaned))
	}

	remove()
	remove()
	g.Receive(event.NewTrigger())
	if len(orphaned) != 2 {
		t.Error("removed fallback still called")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[int]()
	r.Set("a", 1)
	r.Set("b", 2)
	if v, ok := r.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if r.CompareAndDelete("a", func(v int) bool { return v == 2 }) {
		t.Error("deleted on mismatch")
	}
	if !r.CompareAndDelete("a", func(v int) bool { return v == 1 }) {
		t.Error("match did not delete")
	}
	if v, ok := r.Take("b"); !ok || v != 2 {
		t.Errorf("Take(b) = %d, %v", v, ok)
	}
	if _, ok := r.Take("b"); ok {
		t.Error("Take twice")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestPending(t *testing.T) {
	p := NewPending[string]()
	if p.Settled() {
		t.Fatal("new pending is settled")
	}
	if !p.Resolve("ok") {
		t.Fatal("first resolve failed")
	}
	if p.Reject(errors.New("late")) || p.Resolve("again") {
		t.Error("pending settled twice")
	}
	v, err := p.Wait(context.Background())
	if v != "ok" || err != nil {
		t.Errorf("Wait = %q, %v", v, err)
	}

	rejected := NewPending[string]()
	cause := errors.New("disposed")
	rejected.Reject(cause)
	<-rejected.Done()
	if _, err := rejected.Result(); !errors.Is(err, cause) {
		t.Errorf("Result err = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := NewPending[int]().Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait on unsettled = %v", err)
	}
}
