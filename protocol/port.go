package protocol

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/event"
	"github.com/wippyai/wasm-bridge/metrics"
)

// HostHandlers receives child notifications. Nil fields are ignored.
type HostHandlers struct {
	Ready func()
	Error func(msg string)
	Event func(ev event.Event)
}

// HostPort is the host realm's end of the protocol for one instance.
type HostPort struct {
	bus    *Bus
	cancel func()
	h      HostHandlers
	id     string
}

// OpenHostPort starts listening on bus for notifications addressed to id.
func OpenHostPort(bus *Bus, id string, h HostHandlers) *HostPort {
	p := &HostPort{bus: bus, id: id, h: h}
	p.cancel = bus.Listen(p.receive)
	return p
}

// ID returns the instance identifier the port answers to.
func (p *HostPort) ID() string {
	return p.id
}

// SendOutbound ships one event into the child's local queue.
func (p *HostPort) SendOutbound(ev event.Event) error {
	n, err := event.Normalize(ev)
	if err != nil {
		return err
	}
	return p.bus.Post(Envelope{
		Type:    TypeEnqueueOutbound,
		Payload: Payload{InstanceID: p.id, Event: &n},
	})
}

// Close stops receiving notifications.
func (p *HostPort) Close() {
	p.cancel()
}

func (p *HostPort) receive(data []byte) {
	env, ok := accept(data, p.id, "host")
	if !ok {
		return
	}
	switch env.Type {
	case TypeChildReady:
		if p.h.Ready != nil {
			p.h.Ready()
		}
	case TypeChildError:
		if p.h.Error != nil {
			p.h.Error(env.Payload.Error)
		}
	case TypeChildEvent:
		if p.h.Event != nil {
			p.h.Event(*env.Payload.Event)
		}
	default:
		// our own enqueue-outbound echoed back by the broadcast
	}
}

// ChildHandlers receives host commands. Nil fields are ignored.
type ChildHandlers struct {
	Outbound func(ev event.Event)
}

// ChildPort is the child realm's end of the protocol for one instance.
type ChildPort struct {
	bus    *Bus
	cancel func()
	h      ChildHandlers
	id     string
}

// OpenChildPort starts listening on bus for commands addressed to id.
func OpenChildPort(bus *Bus, id string, h ChildHandlers) *ChildPort {
	p := &ChildPort{bus: bus, id: id, h: h}
	p.cancel = bus.Listen(p.receive)
	return p
}

// Ready notifies the host that the foreign module finished initializing.
func (p *ChildPort) Ready() error {
	return p.bus.Post(Envelope{Type: TypeChildReady, Payload: Payload{InstanceID: p.id}})
}

// Fail notifies the host that initialization failed.
func (p *ChildPort) Fail(msg string) error {
	if msg == "" {
		msg = "unknown error"
	}
	return p.bus.Post(Envelope{Type: TypeChildError, Payload: Payload{InstanceID: p.id, Error: msg}})
}

// Emit forwards an inbound event produced by the foreign module.
func (p *ChildPort) Emit(ev event.Event) error {
	return p.bus.Post(Envelope{Type: TypeChildEvent, Payload: Payload{InstanceID: p.id, Event: &ev}})
}

// EmitBroadcast forwards an inbound event whose owning instance is unknown.
func (p *ChildPort) EmitBroadcast(ev event.Event) error {
	return p.bus.Post(Envelope{Type: TypeChildEvent, Payload: Payload{InstanceID: Broadcast, Event: &ev}})
}

// Close stops receiving commands.
func (p *ChildPort) Close() {
	p.cancel()
}

func (p *ChildPort) receive(data []byte) {
	env, ok := accept(data, p.id, "child")
	if !ok {
		return
	}
	if env.Type != TypeEnqueueOutbound {
		return
	}
	if p.h.Outbound != nil {
		p.h.Outbound(*env.Payload.Event)
	}
}

// accept decodes data and applies instance addressing.
func accept(data []byte, id, side string) (Envelope, bool) {
	env, err := Unmarshal(data)
	if err != nil {
		metrics.DiscardedEnvelopes.WithLabelValues("invalid").Inc()
		Logger().Debug("discarding invalid envelope",
			zap.String("side", side),
			zap.String("instance", id),
			zap.Error(err))
		return Envelope{}, false
	}
	if !env.AddressedTo(id) {
		metrics.DiscardedEnvelopes.WithLabelValues("misaddressed").Inc()
		return Envelope{}, false
	}
	return env, true
}
