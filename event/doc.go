// Package event defines the structured values exchanged with the foreign module.
//
// An Event is a tagged union: exactly one Variant with an opaque payload.
// Three variants are known to the host:
//
//	DebugRayMarch  selects a debug rendering mode (Off, Normals, Steps, Depth)
//	ViewModel      carries a scene description, always a string on the wire
//	Trigger        zero-payload marker
//
// Inbound events produced by the foreign module may use any variant name;
// unknown variants are preserved with their raw payload.
//
// # Wire Format
//
// Events are externally tagged JSON, matching what the foreign module's
// deserializer expects:
//
//	{"DebugRayMarch":"Normals"}
//	{"ViewModel":"{\"palette\":{\"primary\":\"#ff8800\"}}"}
//	"Trigger"
//
// The foreign module cannot accept structured scene objects, so Normalize
// serializes a non-string ViewModel payload before it crosses into the module.
package event
