// Package host is the application side of a bridge instance.
//
// Open creates an instance identifier, encodes the child location, spawns
// the child realm and waits on the shared bus for its notifications. Once
// the child reports child-ready, Ready hands out a bridge.Bridge whose
// outbound events travel as enqueue-outbound envelopes and whose inbound
// subscribers are fed from child-event envelopes.
//
//	frame, err := host.Open(ctx, host.Options{
//		Bus:        bus,
//		LoaderPath: "/bridge/loader",
//		ModulePath: "/scene.wasm",
//		Spawn:      host.InProcess(childOpts),
//	})
//	b, err := frame.Ready(ctx)
//	b.EnqueueOutbound(event.NewTrigger())
package host
