package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/child"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
	"github.com/wippyai/wasm-bridge/lifecycle"
	"github.com/wippyai/wasm-bridge/protocol"
)

// SpawnFunc starts a child realm at location. The realm must stop when ctx
// ends and close the returned channel once it has. A nil channel means
// the realm's exit cannot be observed.
type SpawnFunc func(ctx context.Context, location string) (<-chan struct{}, error)

// InProcess spawns child runtimes as goroutines sharing opts. The location
// is parsed exactly as an isolated realm would parse it.
func InProcess(opts child.Options) SpawnFunc {
	return func(ctx context.Context, location string) (<-chan struct{}, error) {
		loc, err := child.ParseLocation(location)
		if err != nil {
			return nil, err
		}
		rt := child.New(loc, opts)
		exited := make(chan struct{})
		go func() {
			defer close(exited)
			if err := rt.Run(ctx); err != nil {
				Logger().Error("child realm exited",
					zap.String("instance", loc.InstanceID),
					zap.Error(err))
			}
		}()
		return exited, nil
	}
}

// Options configures a frame.
type Options struct {
	// Bus is shared with the child realm. Required.
	Bus *protocol.Bus

	// Spawn starts the child realm. Required.
	Spawn SpawnFunc

	LoaderPath string
	ModulePath string
	Debug      event.DebugMode

	// ID overrides the generated instance identifier.
	ID string
}

// Frame is the host's handle on one child realm.
type Frame struct {
	err     error
	port    *protocol.HostPort
	inbound *bridge.Queue
	remote  *remoteBridge
	cancel  context.CancelFunc
	exited  <-chan struct{}
	done    chan struct{}
	id      string
	mu      sync.Mutex
	state   lifecycle.State
	closed  bool
}

// Open spawns the child realm for a new instance. Configuration problems
// are not checked here: the child reports them as child-error, which Ready
// returns.
func Open(ctx context.Context, opts Options) (*Frame, error) {
	if opts.Bus == nil {
		return nil, errors.MissingParam(opts.ID, "bus")
	}
	if opts.Spawn == nil {
		return nil, errors.MissingParam(opts.ID, "spawn")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	f := &Frame{
		id:      id,
		inbound: bridge.NewQueue(id),
		done:    make(chan struct{}),
		state:   lifecycle.Initializing,
	}
	f.port = protocol.OpenHostPort(opts.Bus, id, protocol.HostHandlers{
		Ready: f.onReady,
		Error: f.onError,
		Event: f.inbound.DeliverInbound,
	})
	f.remote = &remoteBridge{port: f.port, inbound: f.inbound}

	location := child.Location{
		LoaderPath: opts.LoaderPath,
		ModulePath: opts.ModulePath,
		InstanceID: id,
		Debug:      opts.Debug,
	}.String()

	childCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel
	exited, err := opts.Spawn(childCtx, location)
	if err != nil {
		f.Close()
		return nil, errors.LoadFailed(id, location, fmt.Errorf("spawn child realm: %w", err))
	}
	f.exited = exited

	Logger().Debug("frame opened",
		zap.String("instance", id),
		zap.String("location", location))
	return f, nil
}

// ID returns the instance identifier.
func (f *Frame) ID() string {
	return f.id
}

// State mirrors the child's lifecycle as seen through the protocol.
func (f *Frame) State() lifecycle.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Ready waits for the child's initialization outcome.
func (f *Frame) Ready(ctx context.Context) (bridge.Bridge, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.remote, nil
}

func (f *Frame) settle(state lifecycle.State, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Terminal() {
		return false
	}
	f.state = state
	f.err = err
	close(f.done)
	return true
}

func (f *Frame) onReady() {
	if f.settle(lifecycle.Ready, nil) {
		Logger().Info("child ready", zap.String("instance", f.id))
	}
}

func (f *Frame) onError(msg string) {
	err := errors.New(errors.PhaseInit, errors.KindInitFailed).
		Instance(f.id).
		Detail("%s", msg).
		Build()
	if f.settle(lifecycle.Error, err) {
		Logger().Error("child failed", zap.String("instance", f.id), zap.String("error", msg))
	}
}

// Close stops the child realm, waits for it to tear down and detaches from
// the bus. Waiters on Ready receive a disposed error.
func (f *Frame) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.settle(lifecycle.Error, errors.Disposed(f.id))
	f.port.Close()
	f.inbound.Dispose()
	if f.cancel != nil {
		f.cancel()
	}
	if f.exited != nil {
		<-f.exited
	}
}

// remoteBridge is the bridge handed to callers once the child is ready.
type remoteBridge struct {
	port    *protocol.HostPort
	inbound *bridge.Queue
}

func (b *remoteBridge) EnqueueOutbound(ev event.Event) error {
	return b.port.SendOutbound(ev)
}

func (b *remoteBridge) SubscribeInbound(h bridge.Handler) func() {
	return b.inbound.SubscribeInbound(h)
}
