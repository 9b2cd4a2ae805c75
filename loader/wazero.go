package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
	"github.com/wippyai/wasm-bridge/surface"
)

// HostModule is the fixed import module name foreign modules link against.
const HostModule = "bridge"

// DefaultFrameInterval paces the frame export when Config leaves it zero.
const DefaultFrameInterval = 16 * time.Millisecond

// Config holds configuration for a Wazero loader
type Config struct {
	// Document is searched for the surface carrying surface.LoaderID.
	Document *surface.Document

	// Fetcher reads module bytes. Defaults to FileFetcher.
	Fetcher Fetcher

	// FrameInterval paces the guest frame export. 0 selects
	// DefaultFrameInterval; negative disables the frame loop so callers
	// drive frames with Step.
	FrameInterval time.Duration

	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps wazero's default.
	MemoryLimitPages uint32
}

type shimRef struct {
	ImportShim
}

// Wazero loads core WebAssembly modules into one shared wazero runtime.
type Wazero struct {
	runtime  wazero.Runtime
	fetcher  Fetcher
	doc      *surface.Document
	entry    atomic.Pointer[shimRef]
	hostErr  error
	interval time.Duration
	seq      atomic.Uint64
	hostMu   sync.Mutex
	hostDone bool
}

// NewWazero creates a loader with its own wazero runtime.
func NewWazero(ctx context.Context, cfg Config) (*Wazero, error) {
	if cfg.Document == nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindMissingParam).
			Field("Document").
			Detail("wazero loader requires a surface document").
			Build()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = FileFetcher()
	}
	interval := cfg.FrameInterval
	if interval == 0 {
		interval = DefaultFrameInterval
	}

	return &Wazero{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		fetcher:  fetcher,
		doc:      cfg.Document,
		interval: interval,
	}, nil
}

// Close releases the runtime and every module loaded into it.
func (l *Wazero) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// Load fetches, instantiates and starts the module at modulePath, binding
// the runtime's bridge imports to shim.
func (l *Wazero) Load(ctx context.Context, modulePath string, shim ImportShim) (Module, error) {
	if shim == nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindMissingParam).
			Field("shim").
			Detail("import shim is required").
			Build()
	}
	l.entry.Store(&shimRef{shim})

	if err := l.ensureHostModule(ctx); err != nil {
		return nil, err
	}

	wasmBytes, err := l.fetcher.Fetch(ctx, modulePath)
	if err != nil {
		return nil, errors.LoadFailed("", modulePath, err)
	}

	target, ok := l.doc.Lookup(surface.LoaderID)
	if !ok {
		return nil, errors.InitFailed("", errors.NotFound(errors.PhaseInit, "surface", surface.LoaderID))
	}
	width, height := target.Size()

	compiled, err := l.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.InitFailed("", fmt.Errorf("compile %s: %w", modulePath, err))
	}

	name := fmt.Sprintf("foreign-%d", l.seq.Add(1))
	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()
	mod, err := l.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.InitFailed("", fmt.Errorf("instantiate %s: %w", modulePath, err))
	}

	inst := &instance{
		loader:   l,
		mod:      mod,
		compiled: compiled,
		name:     name,
		width:    int32(width),
		height:   int32(height),
		stop:     make(chan struct{}),
	}

	var handle Module = inst
	if mod.ExportedFunction("release") != nil {
		handle = &releasable{inst}
	}

	// The frame loop runs even if _start fails: some runtimes leave start
	// by throwing once their event loop is installed.
	var startErr error
	if start := mod.ExportedFunction("_start"); start != nil {
		if startErr = inst.call(ctx, start); startErr != nil {
			Logger().Debug("foreign module start failed",
				zap.String("module", name),
				zap.Error(startErr))
		}
	}
	inst.startFrames(l.interval)
	return handle, startErr
}

func (l *Wazero) shim() ImportShim {
	if ref := l.entry.Load(); ref != nil {
		return ref.ImportShim
	}
	return nil
}

func (l *Wazero) ensureHostModule(ctx context.Context) error {
	l.hostMu.Lock()
	defer l.hostMu.Unlock()
	if l.hostDone {
		return l.hostErr
	}

	i32 := api.ValueTypeI32
	_, err := l.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.pollEvent), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("poll_event").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.receiveEvent), []api.ValueType{i32, i32}, nil).
		Export("receive_event").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.throw), []api.ValueType{i32, i32}, nil).
		Export("throw").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(surfaceDim(func(i *instance) int32 { return i.width })), nil, []api.ValueType{i32}).
		Export("surface_width").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(surfaceDim(func(i *instance) int32 { return i.height })), nil, []api.ValueType{i32}).
		Export("surface_height").
		Instantiate(ctx)

	l.hostDone = true
	if err != nil {
		l.hostErr = errors.InitFailed("", fmt.Errorf("instantiate host module %q: %w", HostModule, err))
	}
	return l.hostErr
}

type instanceKey struct{}

func instanceFrom(ctx context.Context) *instance {
	inst, _ := ctx.Value(instanceKey{}).(*instance)
	return inst
}

func (l *Wazero) pollEvent(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, capacity := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	inst := instanceFrom(ctx)

	var data []byte
	if inst != nil {
		data, inst.stash = inst.stash, nil
	}
	if data == nil {
		shim := l.shim()
		if shim == nil {
			stack[0] = 0
			return
		}
		ev, ok := shim.Poll()
		if !ok {
			stack[0] = 0
			return
		}
		encoded, err := event.Encode(ev)
		if err != nil {
			Logger().Warn("poll_event: dropping unencodable event",
				zap.Stringer("event", ev),
				zap.Error(err))
			stack[0] = 0
			return
		}
		data = encoded
	}

	if uint32(len(data)) > capacity {
		if inst != nil {
			inst.stash = data
		} else {
			Logger().Warn("poll_event: buffer too small outside a tracked call, event lost",
				zap.Int("size", len(data)),
				zap.Uint32("cap", capacity))
		}
		stack[0] = api.EncodeI32(-int32(len(data)))
		return
	}

	mem := mod.Memory()
	if mem == nil || !mem.Write(ptr, data) {
		Logger().Warn("poll_event: write outside guest memory",
			zap.Error(errors.OutOfBounds(errors.PhaseEncode, ptr, uint32(len(data)))))
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeI32(int32(len(data)))
}

func (l *Wazero) receiveEvent(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])

	data, ok := readGuest(mod, ptr, length)
	if !ok {
		Logger().Warn("receive_event: read outside guest memory",
			zap.Error(errors.OutOfBounds(errors.PhaseDecode, ptr, length)))
		return
	}
	ev, err := event.Decode(data)
	if err != nil {
		Logger().Warn("receive_event: dropping malformed event", zap.Error(err))
		return
	}
	shim := l.shim()
	if shim == nil {
		return
	}
	shim.Receive(ev)
}

func (l *Wazero) throw(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])

	msg := "foreign module threw"
	if data, ok := readGuest(mod, ptr, length); ok {
		msg = string(data)
	}
	thrown := &ThrownError{Message: msg}
	if inst := instanceFrom(ctx); inst != nil {
		inst.thrown = thrown
	}
	panic(thrown)
}

func surfaceDim(get func(*instance) int32) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		var v int32
		if inst := instanceFrom(ctx); inst != nil {
			v = get(inst)
		}
		stack[0] = api.EncodeI32(v)
	}
}

// readGuest copies length bytes out of guest memory.
func readGuest(mod api.Module, ptr, length uint32) ([]byte, bool) {
	mem := mod.Memory()
	if mem == nil {
		return nil, false
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, true
}
