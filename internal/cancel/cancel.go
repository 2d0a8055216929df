// Package cancel provides process-wide cancellation state and a registry of
// temporary files created during archive extraction, torn down on signal.
//
// The shape follows github.com/One-com/gone/signals: a small, reflect-based
// select loop mapping os.Signal to an Action, kept deliberately simple since
// only one signal path (graceful shutdown) is needed here.
package cancel

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Flag is a process-wide, read-mostly cancellation flag. The merge loop
// polls it at the top of every tick; workers never read it directly and
// instead observe cancellation indirectly through channel closure.
type Flag struct {
	set atomic.Bool
}

// Cancelled reports whether cancellation has been requested.
func (f *Flag) Cancelled() bool { return f.set.Load() }

// Cancel requests cancellation. Idempotent.
func (f *Flag) Cancel() { f.set.Store(true) }

// Registry tracks temporary files created while extracting archive members
// that require seekable input (compressed tar streams). Entries are
// unlinked at normal drop (Remove) and, idempotently, by the signal
// handler on cancellation.
type Registry struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewRegistry returns an empty temp-file registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]struct{})}
}

// Add registers a temp file path for cleanup.
func (r *Registry) Add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path] = struct{}{}
}

// Remove unlinks and deregisters a single temp file. Safe to call more
// than once for the same path.
func (r *Registry) Remove(path string) error {
	r.mu.Lock()
	_, ok := r.paths[path]
	delete(r.paths, path)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RemoveAll unlinks every registered temp file. Idempotent; errors for
// individual files are collected but do not stop the sweep.
func (r *Registry) RemoveAll() []error {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = make(map[string]struct{})
	r.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errs
}

// Controller bundles the cancellation flag and temp-file registry that a
// signal handler needs to tear down on SIGINT/SIGTERM.
type Controller struct {
	Flag     *Flag
	TempFile *Registry
}

// NewController returns a fresh, non-cancelled Controller.
func NewController() *Controller {
	return &Controller{Flag: &Flag{}, TempFile: NewRegistry()}
}

// Install starts a goroutine that, on receiving any of sigs, sets the
// cancellation flag and unlinks all registered temp files, then returns a
// stop function to disable the handler (used in tests).
func (c *Controller) Install(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			c.Flag.Cancel()
			c.TempFile.RemoveAll()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}
