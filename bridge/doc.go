// Package bridge provides the per-instance event queue shared by the host
// and the foreign module.
//
// A Queue has two directions. Outbound events are buffered in FIFO order
// until the foreign module polls them; the module cannot suspend, so
// PollOutbound never blocks and reports an empty queue with ok == false.
// Inbound events produced by the module are dispatched synchronously to
// every subscriber:
//
//	q := bridge.NewQueue("instance-id")
//	unsubscribe := q.SubscribeInbound(func(ev event.Event) {
//	    fmt.Println("module says", ev)
//	})
//	defer unsubscribe()
//
//	q.EnqueueOutbound(event.NewTrigger())
//	ev, ok := q.PollOutbound() // Trigger, true
//	ev, ok = q.PollOutbound()  // zero Event, false
//
// A panicking subscriber is recovered and logged; the remaining subscribers
// still receive the event.
//
// After Dispose the queue keeps accepting events so fire-and-forget callers
// do not fail, but it holds nothing and has no subscribers.
package bridge
