// Package protocol implements the message protocol between the host realm
// and the isolated child realm that owns the foreign module.
//
// The realms share nothing but a Bus: an unscoped broadcast primitive that
// serializes every Envelope and hands the bytes to every listener. The bus
// has no notion of instances, so each envelope carries the instance
// identifier and receivers discard anything not addressed to them:
//
//	child → host   child-ready       initialization finished
//	child → host   child-error       initialization failed, payload.error set
//	child → host   child-event       inbound event, payload.event set
//	host  → child  enqueue-outbound  outbound event, payload.event set
//
// A child-event may be addressed to Broadcast when the child cannot tell
// which instance produced it; hosts accept those. No other type honors
// Broadcast.
//
// Delivery is asynchronous. Each listener sees envelopes in the order they
// were posted, but listeners progress independently.
package protocol
