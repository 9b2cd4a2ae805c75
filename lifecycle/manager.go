package lifecycle

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/hooks"
	"github.com/wippyai/wasm-bridge/loader"
	"github.com/wippyai/wasm-bridge/metrics"
	"github.com/wippyai/wasm-bridge/surface"
)

// BenignSignature is the text the foreign module's runtime throws to leave
// its start routine once its event loop is running. An initialization error
// containing it counts as success.
const BenignSignature = "Using exceptions for control flow, don't mind me. This isn't actually an error!"

// IsBenign reports whether err carries BenignSignature.
func IsBenign(err error) bool {
	return err != nil && strings.Contains(err.Error(), BenignSignature)
}

// Registries are the per-instance tables shared by every manager of a
// process, keyed by instance identifier.
type Registries struct {
	Pending   *hooks.Registry[*hooks.Pending[loader.Module]]
	Functions *hooks.Registry[*hooks.Functions]
}

// NewRegistries creates empty registries.
func NewRegistries() *Registries {
	return &Registries{
		Pending:   hooks.NewRegistry[*hooks.Pending[loader.Module]](),
		Functions: hooks.NewRegistry[*hooks.Functions](),
	}
}

// DefaultRegistries back managers created without WithRegistries.
var DefaultRegistries = NewRegistries()

// Config holds the parameters of one instance.
type Config struct {
	// ID identifies the instance. A random UUID is used when empty.
	ID string

	// LoaderPath locates the loader script publishing the module loader.
	LoaderPath string

	// ModulePath is passed to the loader.
	ModulePath string

	// Document owns the rendering surface and the injected loader script.
	Document *surface.Document

	// Resolver maps LoaderPath to a loader.
	Resolver loader.Resolver
}

// Option configures a Manager.
type Option func(*Manager)

// WithGlobal routes the instance through g instead of hooks.Default.
func WithGlobal(g *hooks.Global) Option {
	return func(m *Manager) { m.global = g }
}

// WithRegistries uses r instead of DefaultRegistries.
func WithRegistries(r *Registries) Option {
	return func(m *Manager) { m.regs = r }
}

// Manager is one bridge instance.
type Manager struct {
	cfg       Config
	err       error
	module    loader.Module
	global    *hooks.Global
	regs      *Registries
	queue     *bridge.Queue
	fns       *hooks.Functions
	pending   *hooks.Pending[loader.Module]
	surf      *surface.Surface
	lease     surface.Lease
	script    *surface.Script
	done      chan struct{}
	unobserve []func()
	mu        sync.Mutex
	state     State
	disposed  bool
}

// New creates an Uninitialized manager.
func New(cfg Config, opts ...Option) *Manager {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	m := &Manager{
		cfg:    cfg,
		global: hooks.Default,
		regs:   DefaultRegistries,
		queue:  bridge.NewQueue(cfg.ID),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.Instances.WithLabelValues(Uninitialized.String()).Inc()
	return m
}

// ID returns the instance identifier.
func (m *Manager) ID() string {
	return m.cfg.ID
}

// Bridge returns the instance's event queue.
func (m *Manager) Bridge() *bridge.Queue {
	return m.queue
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that moved the instance to Error.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Module returns the loaded module handle once Ready.
func (m *Manager) Module() loader.Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.module
}

// Done is closed when the instance reaches a terminal state.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until initialization settles or ctx ends. It returns the
// initialization error, if any.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setState must be called with mu held.
func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	metrics.Instances.WithLabelValues(m.state.String()).Dec()
	metrics.Instances.WithLabelValues(s.String()).Inc()
	m.state = s
	if s.Terminal() {
		close(m.done)
	}
}

// failLocked moves to Error. It must be called with mu held.
func (m *Manager) failLocked(err error) {
	m.err = err
	m.setState(Error)
	metrics.InitOutcomes.WithLabelValues(metrics.OutcomeError).Inc()
}

// Start begins initialization on surf. Configuration errors are returned
// immediately and leave the instance in Error without touching surf.
// Every later failure is reported through Wait and Err.
func (m *Manager) Start(ctx context.Context, surf *surface.Surface) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return errors.Disposed(m.cfg.ID)
	}
	if m.state != Uninitialized {
		m.mu.Unlock()
		return errors.New(errors.PhaseInit, errors.KindInvalidState).
			Instance(m.cfg.ID).
			Detail("start called in state %s", m.state).
			Build()
	}
	if err := m.validate(surf); err != nil {
		m.failLocked(err)
		m.mu.Unlock()
		Logger().Error("bridge instance misconfigured",
			zap.String("instance", m.cfg.ID),
			zap.Error(err))
		return err
	}

	m.setState(Initializing)
	m.clearStale()

	m.surf = surf
	m.lease = surf.Rename(surface.LoaderID)

	fns := &hooks.Functions{
		Poll:    m.queue.PollOutbound,
		Receive: m.queue.DeliverInbound,
		Owner:   m.cfg.ID,
	}
	m.fns = fns
	m.regs.Functions.Set(m.cfg.ID, fns)
	if displaced := m.global.Claim(fns); displaced != nil {
		metrics.OwnershipSteals.Inc()
		Logger().Warn("global hooks already claimed, taking ownership",
			zap.String("instance", m.cfg.ID),
			zap.String("previous", displaced.Owner))
	}

	pending := hooks.NewPending[loader.Module]()
	m.pending = pending
	m.regs.Pending.Set(m.cfg.ID, pending)

	m.script = m.cfg.Document.InjectScript(m.cfg.ID, m.cfg.LoaderPath)
	m.mu.Unlock()

	Logger().Debug("bridge instance initializing",
		zap.String("instance", m.cfg.ID),
		zap.String("loader", m.cfg.LoaderPath),
		zap.String("module", m.cfg.ModulePath))

	go m.run(ctx, pending)
	return nil
}

func (m *Manager) validate(surf *surface.Surface) error {
	switch {
	case m.cfg.LoaderPath == "":
		return errors.MissingParam(m.cfg.ID, "loader")
	case m.cfg.ModulePath == "":
		return errors.MissingParam(m.cfg.ID, "module")
	case m.cfg.Document == nil:
		return errors.MissingParam(m.cfg.ID, "document")
	case m.cfg.Resolver == nil:
		return errors.MissingParam(m.cfg.ID, "resolver")
	case surf == nil:
		return errors.MissingParam(m.cfg.ID, "surface")
	}
	return nil
}

// clearStale removes whatever a previous instance with the same identifier
// left behind. It must be called with mu held.
func (m *Manager) clearStale() {
	id := m.cfg.ID
	if m.cfg.Document.RemoveScript(id) {
		Logger().Debug("removed stale loader script", zap.String("instance", id))
	}
	if p, ok := m.regs.Pending.Take(id); ok {
		p.Reject(errors.New(errors.PhaseInit, errors.KindDisposed).
			Instance(id).
			Detail("superseded by a new instance with the same identifier").
			Build())
	}
	if f, ok := m.regs.Functions.Take(id); ok {
		if m.global.Release(f) {
			Logger().Debug("released stale global hooks", zap.String("instance", id))
		}
	}
}

func (m *Manager) run(ctx context.Context, pending *hooks.Pending[loader.Module]) {
	mod, err := m.load(ctx)
	benign := IsBenign(err)
	if benign {
		Logger().Debug("foreign module reported benign control-flow exception",
			zap.String("instance", m.cfg.ID))
		err = nil
	}
	m.settle(ctx, pending, mod, err, benign)
}

func (m *Manager) load(ctx context.Context) (loader.Module, error) {
	l, err := m.cfg.Resolver.Resolve(ctx, m.cfg.LoaderPath)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, m.cfg.ModulePath, m.global)
}

func (m *Manager) settle(ctx context.Context, pending *hooks.Pending[loader.Module], mod loader.Module, err error, benign bool) {
	m.mu.Lock()
	if m.disposed || m.pending != pending {
		m.mu.Unlock()
		Logger().Debug("loader settled after dispose",
			zap.String("instance", m.cfg.ID),
			zap.Error(err))
		closeModule(ctx, m.cfg.ID, mod)
		return
	}

	// Another instance with this identifier may have rejected the result
	// while the load was in flight.
	if err == nil && !pending.Resolve(mod) {
		_, err = pending.Result()
	}

	if err != nil {
		pending.Reject(err)
		m.failLocked(instanceError(m.cfg.ID, err))
		fns := m.fns
		m.global.Release(fns)
		m.regs.Functions.CompareAndDelete(m.cfg.ID, func(f *hooks.Functions) bool { return f == fns })
		m.regs.Pending.CompareAndDelete(m.cfg.ID, func(p *hooks.Pending[loader.Module]) bool { return p == pending })
		m.surf.Restore(m.lease)
		failure := m.err
		m.mu.Unlock()

		Logger().Error("bridge instance failed to initialize",
			zap.String("instance", m.cfg.ID),
			zap.Error(failure))
		closeModule(ctx, m.cfg.ID, mod)
		return
	}

	m.module = mod
	m.surf.Restore(m.lease)
	m.setState(Ready)
	outcome := metrics.OutcomeReady
	if benign {
		outcome = metrics.OutcomeBenign
	}
	metrics.InitOutcomes.WithLabelValues(outcome).Inc()

	surf := m.surf
	m.unobserve = append(m.unobserve, surf.Observe(func(visible bool) {
		m.visibilityChanged(visible)
	}))
	m.mu.Unlock()

	if !surf.Visible() {
		m.visibilityChanged(false)
	}
	Logger().Info("bridge instance ready",
		zap.String("instance", m.cfg.ID),
		zap.Bool("benign", benign))
}

func (m *Manager) visibilityChanged(visible bool) {
	m.mu.Lock()
	mod := m.module
	disposed := m.disposed
	m.mu.Unlock()
	if disposed {
		return
	}

	p, ok := mod.(loader.Pauser)
	if !ok {
		return
	}
	if visible {
		p.Resume(context.Background())
	} else {
		p.Pause(context.Background())
	}
}

// Dispose tears the instance down. It is safe to call at any point,
// including while initialization is in flight, and more than once.
func (m *Manager) Dispose(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true

	unobserve := m.unobserve
	m.unobserve = nil
	mod := m.module
	m.module = nil
	pending := m.pending
	fns := m.fns
	surf := m.surf
	lease := m.lease
	script := m.script
	if !m.state.Terminal() {
		m.err = errors.Disposed(m.cfg.ID)
		m.setState(Error)
	}
	state := m.state
	m.mu.Unlock()

	for _, fn := range unobserve {
		fn()
	}

	if r, ok := mod.(loader.Releaser); ok {
		if err := r.Release(ctx); err != nil {
			Logger().Warn("foreign module release hook failed",
				zap.String("instance", m.cfg.ID),
				zap.Error(err))
		}
	}
	var closeErr error
	if mod != nil {
		closeErr = mod.Close(ctx)
	}

	m.queue.Dispose()

	id := m.cfg.ID
	if script != nil {
		m.cfg.Document.DetachScript(script)
	}
	if pending != nil {
		pending.Reject(errors.Disposed(id))
		m.regs.Pending.CompareAndDelete(id, func(p *hooks.Pending[loader.Module]) bool { return p == pending })
	}
	if fns != nil {
		m.regs.Functions.CompareAndDelete(id, func(f *hooks.Functions) bool { return f == fns })
		m.global.Release(fns)
	}
	if surf != nil {
		surf.Restore(lease)
	}

	metrics.Instances.WithLabelValues(state.String()).Dec()
	Logger().Debug("bridge instance disposed", zap.String("instance", id))

	if closeErr != nil {
		return errors.Wrap(errors.PhaseTeardown, errors.KindInvalidState, closeErr, "close foreign module")
	}
	return nil
}

// instanceError tags err with the instance identifier, wrapping errors from
// outside the structured taxonomy as initialization failures.
func instanceError(id string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if e.Instance == "" {
			tagged := *e
			tagged.Instance = id
			return &tagged
		}
		return e
	}
	return errors.InitFailed(id, err)
}

func closeModule(ctx context.Context, id string, mod loader.Module) {
	if mod == nil {
		return
	}
	if err := mod.Close(ctx); err != nil {
		Logger().Warn("closing foreign module failed",
			zap.String("instance", id),
			zap.Error(err))
	}
}
