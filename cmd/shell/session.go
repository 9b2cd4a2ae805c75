package main

import (
	"context"
	"fmt"

	"github.com/wippyai/wasm-bridge/child"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/host"
	"github.com/wippyai/wasm-bridge/loader"
	"github.com/wippyai/wasm-bridge/protocol"
	"github.com/wippyai/wasm-bridge/surface"
)

// session is one shell window: a wazero loader published at the configured
// loader path, the shared bus and the frame hosting the module.
type session struct {
	loader *loader.Wazero
	bus    *protocol.Bus
	frame  *host.Frame
}

func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}
	debug, err := cfg.DebugMode()
	if err != nil {
		return nil, err
	}

	doc := surface.NewDocument()
	l, err := loader.NewWazero(ctx, loader.Config{
		Document:         doc,
		FrameInterval:    interval,
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	scripts := loader.NewScripts()
	scripts.Register(cfg.LoaderPath, l)

	bus := protocol.NewBus()
	frame, err := host.Open(ctx, host.Options{
		Bus:        bus,
		LoaderPath: cfg.LoaderPath,
		ModulePath: cfg.ModulePath,
		Debug:      debug,
		Spawn: host.InProcess(child.Options{
			Bus:      bus,
			Resolver: scripts,
			Document: doc,
			Width:    cfg.Width,
			Height:   cfg.Height,
		}),
	})
	if err != nil {
		bus.Close()
		_ = l.Close(ctx)
		return nil, err
	}
	return &session{loader: l, bus: bus, frame: frame}, nil
}

func (s *session) Close(ctx context.Context) {
	s.frame.Close()
	s.bus.Close()
	_ = s.loader.Close(ctx)
}
