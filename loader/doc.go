// Package loader injects foreign modules and wires them to the fixed
// bridge entry points.
//
// # Loader Interface
//
// A Loader has one operation:
//
//	Load(ctx, modulePath, shim) (Module, error)
//
// shim provides the two entry points the foreign module calls, Poll and
// Receive. The mechanism behind Load is an implementation detail; Wazero
// runs core WebAssembly modules with tetratelabs/wazero.
//
// Loaders are found by path through a Resolver, mirroring how a bootstrap
// script is fetched before it can load anything. Scripts is the in-process
// Resolver.
//
// # Guest ABI
//
// Wazero instantiates a single host module named "bridge" per runtime.
// Every foreign module in that runtime imports the same functions, so only
// one shim can be bound at a time; the most recent Load wins:
//
//	(import "bridge" "poll_event"     (func (param i32 i32) (result i32)))
//	(import "bridge" "receive_event"  (func (param i32 i32)))
//	(import "bridge" "throw"          (func (param i32 i32)))
//	(import "bridge" "surface_width"  (func (result i32)))
//	(import "bridge" "surface_height" (func (result i32)))
//
// poll_event(ptr, cap) writes the next event's JSON into guest memory and
// returns its length, 0 when the queue is empty, or the negated required
// size when cap is too small; the event is kept for the next call.
// receive_event(ptr, len) hands one JSON event to the host. throw(ptr, len)
// aborts the current guest call with a ThrownError carrying the message.
//
// Optional guest exports:
//
//	_start   run once by Load; its failure is Load's error
//	frame    called every FrameInterval while the module is visible
//	pause    called when the surface leaves the viewport
//	resume   called when it comes back
//	release  resource-release hook; only then does the Module implement Releaser
//
// The module's surface dimensions come from whichever surface carries
// surface.LoaderID when Load runs.
package loader
