// Package wasmbridge hosts a foreign WebAssembly module behind an isolated
// child runtime and exchanges typed events with it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmbridge/          Root package (documentation only)
//	├── event/           Event tagged union and its JSON envelope codec
//	├── bridge/          Outbound/inbound event queues shared with the module
//	├── hooks/           Global indirection registry the module links against
//	├── surface/         Drawing surfaces, scripts and visibility
//	├── loader/          wazero loader and the "bridge" host module
//	├── lifecycle/       Per-instance manager: start, settle, visibility, dispose
//	├── protocol/        Host/child envelope protocol over an in-process bus
//	├── child/           Child runtime entry: location parsing and Run
//	├── host/            Frame: spawns the child and exposes a Bridge
//	├── config/          File and environment configuration
//	├── logging/         zap logger construction
//	├── metrics/         Prometheus collectors
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Publish a loader, open a frame and talk to the module once it is ready:
//
//	doc := surface.NewDocument()
//	l, err := loader.NewWazero(ctx, loader.Config{Document: doc})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close(ctx)
//
//	scripts := loader.NewScripts()
//	scripts.Register("/bridge/loader", l)
//
//	bus := protocol.NewBus()
//	frame, err := host.Open(ctx, host.Options{
//	    Bus:        bus,
//	    LoaderPath: "/bridge/loader",
//	    ModulePath: "scene.wasm",
//	    Spawn:      host.InProcess(child.Options{Bus: bus, Resolver: scripts, Document: doc}),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer frame.Close()
//
//	b, err := frame.Ready(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	b.SubscribeInbound(func(ev event.Event) { fmt.Println(ev) })
//	_ = b.EnqueueOutbound(event.NewTrigger())
//
// The guest ABI is documented in package loader.
package wasmbridge
