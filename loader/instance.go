package loader

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// instance is a foreign module loaded by Wazero.
type instance struct {
	loader   *Wazero
	mod      api.Module
	compiled wazero.CompiledModule
	stop     chan struct{}
	thrown   *ThrownError
	name     string
	stash    []byte
	frames   sync.WaitGroup
	mu       sync.Mutex
	width    int32
	height   int32
	paused   bool
	closed   bool
	failed   bool
	stopOnce sync.Once
}

// call runs fn with the instance attached to ctx. Caller must not hold mu.
func (i *instance) call(ctx context.Context, fn api.Function) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.callLocked(ctx, fn)
}

func (i *instance) callLocked(ctx context.Context, fn api.Function) error {
	if i.closed {
		return nil
	}
	i.thrown = nil
	_, err := fn.Call(context.WithValue(ctx, instanceKey{}, i))
	if err != nil && i.thrown != nil {
		err = i.thrown
	}
	i.thrown = nil
	return err
}

func (i *instance) startFrames(interval time.Duration) {
	if interval < 0 || i.mod.ExportedFunction("frame") == nil {
		return
	}
	i.frames.Add(1)
	go func() {
		defer i.frames.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-i.stop:
				return
			case <-ticker.C:
				if err := i.Step(context.Background()); err != nil {
					Logger().Error("frame loop stopped",
						zap.String("module", i.name),
						zap.Error(err))
					return
				}
			}
		}
	}()
}

// Step runs one guest frame. It is a no-op while paused, after Close, after
// a previous frame failed, or when the guest has no frame export.
func (i *instance) Step(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || i.paused || i.failed {
		return nil
	}
	fn := i.mod.ExportedFunction("frame")
	if fn == nil {
		return nil
	}
	if err := i.callLocked(ctx, fn); err != nil {
		i.failed = true
		return err
	}
	return nil
}

// Pause stops frames and calls the guest pause export when present.
func (i *instance) Pause(ctx context.Context) {
	i.setPaused(ctx, true, "pause")
}

// Resume restarts frames and calls the guest resume export when present.
func (i *instance) Resume(ctx context.Context) {
	i.setPaused(ctx, false, "resume")
}

func (i *instance) setPaused(ctx context.Context, paused bool, export string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || i.paused == paused {
		return
	}
	i.paused = paused
	if fn := i.mod.ExportedFunction(export); fn != nil {
		if err := i.callLocked(ctx, fn); err != nil {
			Logger().Warn("foreign module "+export+" hook failed",
				zap.String("module", i.name),
				zap.Error(err))
		}
	}
}

// Close stops the frame loop and releases the module.
func (i *instance) Close(ctx context.Context) error {
	i.stopOnce.Do(func() { close(i.stop) })
	i.frames.Wait()

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	err := i.mod.Close(ctx)
	if cerr := i.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// releasable is an instance whose guest exports a release hook.
type releasable struct {
	*instance
}

// Release calls the guest release export.
func (r *releasable) Release(ctx context.Context) error {
	fn := r.mod.ExportedFunction("release")
	if fn == nil {
		return nil
	}
	return r.call(ctx, fn)
}
