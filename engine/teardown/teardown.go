// Package teardown releases long-lived handles in reverse creation order.
//
// Every handle is tracked under a unique name together with the names of the
// handles it depends on. A handle can only be tracked after its dependencies, so
// releasing in reverse creation order always releases dependents first.
package teardown

import (
	"fmt"
	"log/slog"
	"sync"
)

// Releaser is anything holding a resource that must be released exactly once.
type Releaser interface {
	Release()
}

// ReleaseFunc adapts a plain function to a Releaser.
type ReleaseFunc func()

func (f ReleaseFunc) Release() { f() }

// Sequencer owns a set of named releasers and their dependency edges.
type Sequencer interface {
	// Track registers r under name. Every name in dependsOn must already be tracked and live.
	//
	// Parameters:
	//   - name: a unique name for the handle
	//   - r: the handle to release during teardown
	//   - dependsOn: names of handles r depends on
	//
	// Returns:
	//   - error: error if name is taken, r is nil, or a dependency is unknown or already released
	Track(name string, r Releaser, dependsOn ...string) error

	// ReleaseOne releases a single handle ahead of the full teardown.
	//
	// Parameters:
	//   - name: the name the handle was tracked under
	//
	// Returns:
	//   - error: error if the handle is unknown, already released, or still has live dependents
	ReleaseOne(name string) error

	// Release releases every live handle in reverse creation order. Calling it again is a no-op.
	Release()

	// Live returns the names of the handles not yet released, in creation order.
	Live() []string
}

type entry struct {
	name      string
	releaser  Releaser
	dependsOn []string
	released  bool
}

// sequencer is the implementation of Sequencer.
type sequencer struct {
	mu      sync.Mutex
	logger  *slog.Logger
	entries []*entry
	byName  map[string]*entry
}

var _ Sequencer = &sequencer{}

// SequencerOption configures a Sequencer during construction.
type SequencerOption func(*sequencer)

// WithLogger sets the logger used to report each release.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - SequencerOption: a function that sets the logger
func WithLogger(logger *slog.Logger) SequencerOption {
	return func(s *sequencer) {
		s.logger = logger
	}
}

// NewSequencer creates an empty Sequencer.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Sequencer: the sequencer
func NewSequencer(options ...SequencerOption) Sequencer {
	s := &sequencer{
		logger: slog.Default(),
		byName: make(map[string]*entry),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *sequencer) Track(name string, r Releaser, dependsOn ...string) error {
	if r == nil {
		return fmt.Errorf("teardown: %q has no releaser", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byName[name]; ok && !e.released {
		return fmt.Errorf("teardown: %q is already tracked", name)
	}
	for _, dep := range dependsOn {
		d, ok := s.byName[dep]
		if !ok {
			return fmt.Errorf("teardown: %q depends on untracked %q", name, dep)
		}
		if d.released {
			return fmt.Errorf("teardown: %q depends on released %q", name, dep)
		}
	}
	e := &entry{name: name, releaser: r, dependsOn: append([]string(nil), dependsOn...)}
	s.entries = append(s.entries, e)
	s.byName[name] = e
	return nil
}

func (s *sequencer) ReleaseOne(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("teardown: %q is not tracked", name)
	}
	if e.released {
		return fmt.Errorf("teardown: %q is already released", name)
	}
	if dep := s.liveDependent(e); dep != "" {
		return fmt.Errorf("teardown: %q is still used by %q", name, dep)
	}
	s.release(e)
	return nil
}

func (s *sequencer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.released {
			continue
		}
		if dep := s.liveDependent(e); dep != "" {
			// unreachable while dependencies are tracked first
			panic(fmt.Sprintf("teardown: %q released before dependent %q", e.name, dep))
		}
		s.release(e)
	}
}

func (s *sequencer) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.entries {
		if !e.released {
			names = append(names, e.name)
		}
	}
	return names
}

func (s *sequencer) release(e *entry) {
	e.released = true
	e.releaser.Release()
	s.logger.Debug("released", slog.String("handle", e.name))
}

func (s *sequencer) liveDependent(target *entry) string {
	for _, e := range s.entries {
		if e.released || e == target {
			continue
		}
		for _, dep := range e.dependsOn {
			if s.byName[dep] == target {
				return e.name
			}
		}
	}
	return ""
}
