package child

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/event"
	"github.com/wippyai/wasm-bridge/hooks"
	"github.com/wippyai/wasm-bridge/lifecycle"
	"github.com/wippyai/wasm-bridge/loader"
	"github.com/wippyai/wasm-bridge/protocol"
	"github.com/wippyai/wasm-bridge/surface"
)

// Default surface dimensions.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Options holds the collaborators of a child runtime.
type Options struct {
	// Bus carries the protocol to the host. Required.
	Bus *protocol.Bus

	// Resolver resolves the location's loader path. Required.
	Resolver loader.Resolver

	// Document receives the rendering surface. A fresh document is created
	// when nil; loaders that look the surface up must share it.
	Document *surface.Document

	// Global and Registries override the process-wide defaults.
	Global     *hooks.Global
	Registries *lifecycle.Registries

	Width  int
	Height int
}

// Runtime is one child realm.
type Runtime struct {
	opts Options
	loc  Location
}

// New creates a runtime for loc.
func New(loc Location, opts Options) *Runtime {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &Runtime{loc: loc, opts: opts}
}

// Run initializes the foreign module and serves the protocol until ctx
// ends, then tears the instance down. Initialization failures are reported
// to the host as child-error; Run only returns an error when it cannot
// reach the host at all.
func (r *Runtime) Run(ctx context.Context) error {
	id := r.loc.InstanceID
	if r.opts.Bus == nil {
		return fmt.Errorf("child %s: bus is required", id)
	}
	if id == "" {
		return r.loc.Validate()
	}
	log := Logger().With(zap.String("instance", id))

	doc := r.opts.Document
	if doc == nil {
		doc = surface.NewDocument()
	}
	global := r.opts.Global
	if global == nil {
		global = hooks.Default
	}
	opts := []lifecycle.Option{lifecycle.WithGlobal(global)}
	if r.opts.Registries != nil {
		opts = append(opts, lifecycle.WithRegistries(r.opts.Registries))
	}
	m := lifecycle.New(lifecycle.Config{
		ID:         id,
		LoaderPath: r.loc.LoaderPath,
		ModulePath: r.loc.ModulePath,
		Document:   doc,
		Resolver:   r.opts.Resolver,
	}, opts...)

	port := protocol.OpenChildPort(r.opts.Bus, id, protocol.ChildHandlers{
		Outbound: func(ev event.Event) {
			if err := m.Bridge().EnqueueOutbound(ev); err != nil {
				log.Warn("dropping outbound event", zap.Stringer("event", ev), zap.Error(err))
			}
		},
	})

	// The module's release hook runs inside Dispose and may still emit
	// events, so the port outlives the manager.
	unsubscribe := func() {}
	removeFallback := func() {}
	var surf *surface.Surface
	defer func() {
		if err := m.Dispose(context.Background()); err != nil {
			log.Warn("child teardown failed", zap.Error(err))
		}
		unsubscribe()
		removeFallback()
		port.Close()
		if surf != nil {
			surf.Remove()
		}
	}()

	if err := r.loc.Validate(); err != nil {
		log.Error("child misconfigured", zap.Error(err))
		return port.Fail(err.Error())
	}

	unsubscribe = m.Bridge().SubscribeInbound(func(ev event.Event) {
		if err := port.Emit(ev); err != nil {
			log.Warn("failed to forward inbound event", zap.Stringer("event", ev), zap.Error(err))
		}
	})

	// Events the module emits while no instance owns the hooks cannot be
	// attributed, so they go to every host frame.
	removeFallback = global.SetFallback(func(ev event.Event) {
		if err := port.EmitBroadcast(ev); err != nil {
			log.Warn("failed to broadcast ownerless event", zap.Stringer("event", ev), zap.Error(err))
		}
	})

	if r.loc.Debug != "" {
		if ev, err := event.NewDebugRayMarch(r.loc.Debug); err == nil {
			_ = m.Bridge().EnqueueOutbound(ev)
		}
	}

	var err error
	surf, err = doc.CreateSurface("canvas-"+id, r.opts.Width, r.opts.Height)
	if err != nil {
		return port.Fail(err.Error())
	}

	if err := m.Start(ctx, surf); err != nil {
		return port.Fail(err.Error())
	}

	select {
	case <-m.Done():
		if err := m.Err(); err != nil {
			if ferr := port.Fail(err.Error()); ferr != nil {
				return ferr
			}
		} else if err := port.Ready(); err != nil {
			return err
		}
	case <-ctx.Done():
		log.Debug("child stopped before initialization settled")
		return nil
	}

	<-ctx.Done()
	log.Debug("child stopping")
	return nil
}
