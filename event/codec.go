package event

import (
	"bytes"

	"github.com/bytedance/sonic"

	"github.com/wippyai/wasm-bridge/errors"
)

// MarshalJSON encodes the externally tagged form.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Variant == "" {
		return nil, errors.InvalidEvent(errors.PhaseEncode, "event has no variant")
	}
	if e.Payload == nil {
		return sonic.Marshal(string(e.Variant))
	}
	return sonic.Marshal(map[string]any{string(e.Variant): e.Payload})
}

// UnmarshalJSON decodes a bare variant string or a single-key object.
func (e *Event) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.InvalidEvent(errors.PhaseDecode, "empty event")
	}

	if data[0] == '"' {
		var name string
		if err := sonic.Unmarshal(data, &name); err != nil {
			return errors.Wrap(errors.PhaseDecode, errors.KindInvalidEvent, err, "decode unit variant")
		}
		if name == "" {
			return errors.InvalidEvent(errors.PhaseDecode, "empty variant name")
		}
		*e = Event{Variant: Variant(name)}
		return nil
	}

	var fields map[string]any
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidEvent, err, "decode tagged variant")
	}
	if len(fields) != 1 {
		return errors.InvalidEvent(errors.PhaseDecode, "event must carry exactly one variant tag")
	}

	for name, payload := range fields {
		if name == "" {
			return errors.InvalidEvent(errors.PhaseDecode, "empty variant name")
		}
		out := Event{Variant: Variant(name), Payload: payload}
		if out.Variant == DebugRayMarch {
			mode, ok := debugMode(payload)
			if !ok || !mode.Valid() {
				return errors.InvalidEnum(errors.PhaseDecode, name, payload, "DebugMode")
			}
			out.Payload = mode
		}
		*e = out
	}
	return nil
}

// Encode serializes e for the foreign module, normalizing it first.
func Encode(e Event) ([]byte, error) {
	n, err := Normalize(e)
	if err != nil {
		return nil, err
	}
	return n.MarshalJSON()
}

// Decode parses one event produced by the foreign module.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := e.UnmarshalJSON(data); err != nil {
		return Event{}, err
	}
	return e, nil
}
