package protocol

import (
	"github.com/bytedance/sonic"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
)

// Type identifies an envelope's message kind.
type Type string

const (
	TypeChildReady      Type = "child-ready"
	TypeChildError      Type = "child-error"
	TypeEnqueueOutbound Type = "enqueue-outbound"
	TypeChildEvent      Type = "child-event"
)

// Broadcast addresses a child-event to whichever host listens.
const Broadcast = "broadcast"

// Payload is the instance-addressed body of an envelope.
type Payload struct {
	Event      *event.Event `json:"event,omitempty"`
	InstanceID string       `json:"instanceId,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Envelope is one cross-realm message.
type Envelope struct {
	Type    Type    `json:"type"`
	Payload Payload `json:"payload"`
}

// AddressedTo reports whether a receiver with identifier id should accept e.
func (e Envelope) AddressedTo(id string) bool {
	if e.Payload.InstanceID == id {
		return true
	}
	return e.Type == TypeChildEvent && e.Payload.InstanceID == Broadcast
}

// Validate checks the per-type payload requirements.
func (e Envelope) Validate() error {
	switch e.Type {
	case TypeChildReady:
	case TypeChildError:
		if e.Payload.Error == "" {
			return errors.InvalidEnvelope("child-error without message", nil)
		}
	case TypeEnqueueOutbound, TypeChildEvent:
		if e.Payload.Event == nil || e.Payload.Event.IsZero() {
			return errors.InvalidEnvelope(string(e.Type)+" without event", nil)
		}
	default:
		return errors.New(errors.PhaseProtocol, errors.KindInvalidEnvelope).
			Field("type").
			Value(e.Type).
			Detail("unknown envelope type %q", e.Type).
			Build()
	}
	if e.Payload.InstanceID == "" {
		return errors.InvalidEnvelope("missing instance id", nil)
	}
	return nil
}

// Marshal validates and serializes e.
func Marshal(e Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := sonic.Marshal(e)
	if err != nil {
		return nil, errors.InvalidEnvelope("encode envelope", err)
	}
	return data, nil
}

// Unmarshal parses and validates an envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := sonic.Unmarshal(data, &e); err != nil {
		return Envelope{}, errors.InvalidEnvelope("decode envelope", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
