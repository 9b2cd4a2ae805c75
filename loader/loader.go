package loader

import (
	"context"
	"io/fs"
	"os"
	"sync"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
)

// ImportShim is the pair of entry points a foreign module calls.
type ImportShim interface {
	Poll() (event.Event, bool)
	Receive(ev event.Event)
}

// Module is a loaded foreign module.
type Module interface {
	Close(ctx context.Context) error
}

// Releaser is implemented by modules exposing their own resource-release hook.
type Releaser interface {
	Release(ctx context.Context) error
}

// Pauser is implemented by modules that can suspend rendering while hidden.
type Pauser interface {
	Pause(ctx context.Context)
	Resume(ctx context.Context)
}

// Stepper is implemented by modules whose frames can be driven manually,
// as when Config.FrameInterval is negative.
type Stepper interface {
	Step(ctx context.Context) error
}

// Loader loads a foreign module bound to shim. Load may return a non-nil
// Module together with an error when the module was instantiated but its
// start routine failed; callers that do not keep it must Close it.
type Loader interface {
	Load(ctx context.Context, modulePath string, shim ImportShim) (Module, error)
}

// Resolver finds the Loader published at a loader path.
type Resolver interface {
	Resolve(ctx context.Context, loaderPath string) (Loader, error)
}

// Scripts is an in-process Resolver keyed by loader path.
type Scripts struct {
	loaders map[string]Loader
	mu      sync.RWMutex
}

// NewScripts creates an empty script table.
func NewScripts() *Scripts {
	return &Scripts{loaders: make(map[string]Loader)}
}

// Register publishes l at path, replacing any previous loader.
func (s *Scripts) Register(path string, l Loader) {
	s.mu.Lock()
	s.loaders[path] = l
	s.mu.Unlock()
}

// Unregister removes the loader at path.
func (s *Scripts) Unregister(path string) {
	s.mu.Lock()
	delete(s.loaders, path)
	s.mu.Unlock()
}

// Resolve returns the loader at path or a transport error.
func (s *Scripts) Resolve(ctx context.Context, loaderPath string) (Loader, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.LoadFailed("", loaderPath, err)
	}
	s.mu.RLock()
	l, ok := s.loaders[loaderPath]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.LoadFailed("", loaderPath, errors.NotFound(errors.PhaseTransport, "loader script", loaderPath))
	}
	return l, nil
}

// Fetcher retrieves module bytes by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// FileFetcher reads modules from the local filesystem.
func FileFetcher() Fetcher {
	return FetcherFunc(func(ctx context.Context, path string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	})
}

// FSFetcher reads modules from fsys.
func FSFetcher(fsys fs.FS) Fetcher {
	return FetcherFunc(func(ctx context.Context, path string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fs.ReadFile(fsys, path)
	})
}

// ThrownError is raised when a foreign module calls throw.
type ThrownError struct {
	Message string
}

func (e *ThrownError) Error() string {
	return e.Message
}
