// Package hooks holds the process-wide indirection used by foreign modules
// whose embedding exposes one fixed, unparameterized pair of entry points.
//
// The foreign module calls Poll and Receive on the Global registry without
// saying which instance it belongs to. Global forwards each call to the
// Functions most recently claimed, resolving the target at call time:
//
//	fns := &hooks.Functions{Owner: id, Poll: q.PollOutbound, Receive: q.DeliverInbound}
//	if prev := hooks.Default.Claim(fns); prev != nil {
//	    // another instance was still initializing; it now misroutes to us
//	}
//	defer hooks.Default.Release(fns) // no-op if someone else has claimed since
//
// Ownership is tracked by pointer identity. Release only clears the slots
// that still point at the caller's Functions, so a stale teardown never
// unhooks a newer instance. Two instances initializing at once still race:
// the later claim wins and the earlier module's calls land on the later
// instance until it releases. The mutex only guards memory; it does not
// and cannot make concurrent ownership safe.
//
// Registry and Pending are the per-instance side tables keyed by instance
// identifier that let parameterless loader code find its own state.
package hooks
