package event

import (
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"github.com/wippyai/wasm-bridge/errors"
)

// Variant names the populated case of an Event.
type Variant string

const (
	DebugRayMarch Variant = "DebugRayMarch"
	ViewModel     Variant = "ViewModel"
	Trigger       Variant = "Trigger"
)

// DebugMode is the closed set of ray-march debug views.
type DebugMode string

const (
	DebugOff     DebugMode = "Off"
	DebugNormals DebugMode = "Normals"
	DebugSteps   DebugMode = "Steps"
	DebugDepth   DebugMode = "Depth"
)

// DebugModes lists every valid DebugMode in display order.
var DebugModes = []DebugMode{DebugOff, DebugNormals, DebugSteps, DebugDepth}

// Valid reports whether m is one of the known modes.
func (m DebugMode) Valid() bool {
	switch m {
	case DebugOff, DebugNormals, DebugSteps, DebugDepth:
		return true
	}
	return false
}

// Event is one value of the tagged union. The zero Event is the empty
// sentinel returned by polls on an exhausted queue.
type Event struct {
	Payload any
	Variant Variant
}

// NewDebugRayMarch creates a debug-mode selector event.
func NewDebugRayMarch(mode DebugMode) (Event, error) {
	if !mode.Valid() {
		return Event{}, errors.InvalidEnum(errors.PhaseEncode, string(DebugRayMarch), mode, "DebugMode")
	}
	return Event{Variant: DebugRayMarch, Payload: mode}, nil
}

// NewViewModel creates a scene-description event. scene may be a string or
// any JSON-serializable value.
func NewViewModel(scene any) Event {
	return Event{Variant: ViewModel, Payload: scene}
}

// NewTrigger creates the zero-payload marker event.
func NewTrigger() Event {
	return Event{Variant: Trigger}
}

// IsZero reports whether e is the empty sentinel.
func (e Event) IsZero() bool {
	return e.Variant == "" && e.Payload == nil
}

// Validate checks the variant-specific payload shape.
func (e Event) Validate() error {
	switch e.Variant {
	case "":
		return errors.InvalidEvent(errors.PhaseEncode, "event has no variant")
	case DebugRayMarch:
		mode, ok := debugMode(e.Payload)
		if !ok || !mode.Valid() {
			return errors.InvalidEnum(errors.PhaseEncode, string(DebugRayMarch), e.Payload, "DebugMode")
		}
	case Trigger:
		if e.Payload != nil {
			return errors.InvalidEvent(errors.PhaseEncode, "Trigger carries no payload")
		}
	}
	return nil
}

// Normalize returns e in the form handed to the foreign module: a ViewModel
// payload that is not already a string is serialized to one, and a debug
// mode given as a plain string becomes a DebugMode.
func Normalize(e Event) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	switch e.Variant {
	case ViewModel:
		switch p := e.Payload.(type) {
		case string:
			return e, nil
		case []byte:
			return Event{Variant: ViewModel, Payload: string(p)}, nil
		default:
			data, err := sonic.Marshal(p)
			if err != nil {
				return Event{}, errors.Wrap(errors.PhaseEncode, errors.KindInvalidEvent, err, "serialize ViewModel payload")
			}
			return Event{Variant: ViewModel, Payload: string(data)}, nil
		}
	case DebugRayMarch:
		mode, _ := debugMode(e.Payload)
		return Event{Variant: DebugRayMarch, Payload: mode}, nil
	}
	return e, nil
}

func debugMode(p any) (DebugMode, bool) {
	switch v := p.(type) {
	case DebugMode:
		return v, true
	case string:
		return DebugMode(v), true
	}
	return "", false
}

// String renders a short description for logs.
func (e Event) String() string {
	if e.IsZero() {
		return "<empty>"
	}
	if e.Payload == nil {
		return string(e.Variant)
	}
	switch p := e.Payload.(type) {
	case string:
		if utf8.RuneCountInString(p) > 48 {
			p = string([]rune(p)[:45]) + "..."
		}
		return string(e.Variant) + "(" + p + ")"
	case DebugMode:
		return string(e.Variant) + "(" + string(p) + ")"
	}
	return string(e.Variant) + "(...)"
}
