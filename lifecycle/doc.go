// Package lifecycle drives one bridge instance from creation to teardown.
//
// A Manager owns an instance's queue, claims the global hooks for it,
// injects and awaits the foreign module loader, and tears everything down
// again on Dispose. States move Uninitialized -> Initializing -> Ready or
// Error; terminal states are never retried, a new Manager with a new
// identifier is required.
//
// The global hooks are a single pair of slots shared by every instance.
// Ownership is released by identity only, so an instance never clears hooks
// another instance claimed after it. Two instances initializing at once
// still leave the second as the owner; the first instance's module then
// talks to the second instance's queue until ownership changes again.
package lifecycle
