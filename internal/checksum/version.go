package checksum

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrVersionConflict is returned when a name is registered twice with
// different versions or dependencies.
var ErrVersionConflict = errors.New("version conflict")

// Versioned is a function bound to an explicit semantic version. Its
// fingerprint is Sum(name, version, deps...) and never depends on the code
// itself, so authors bump the version when behaviour changes in ways
// structural hashing cannot see. Immutable after registration.
type Versioned[F any] struct {
	Fn      F
	name    string
	version int
	sum     Fingerprint
}

// Name returns the registered name.
func (v *Versioned[F]) Name() string {
	return v.name
}

// Version returns the registered version number.
func (v *Versioned[F]) Version() int {
	return v.version
}

// Checksum implements Checksummer. Invoking Fn never changes it.
func (v *Versioned[F]) Checksum() Fingerprint {
	return v.sum
}

// Registry maps function names to their versioned fingerprints.
// Safe for concurrent use.
type Registry struct {
	engine *Engine

	mu      sync.RWMutex
	entries map[string]Fingerprint
	version map[string]int
}

// NewRegistry creates an empty registry fingerprinting with e.
func NewRegistry(e *Engine) *Registry {
	if e == nil {
		e = defaultEngine
	}
	return &Registry{
		engine:  e,
		entries: make(map[string]Fingerprint),
		version: make(map[string]int),
	}
}

var defaultRegistry = NewRegistry(defaultEngine)

// DefaultRegistry returns the process-wide registry used by MustRegister.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Add records name at version and returns its fingerprint. Registering the
// same name again is idempotent when the resulting fingerprint matches and an
// ErrVersionConflict otherwise.
func (r *Registry) Add(name string, version int, deps ...any) (Fingerprint, error) {
	args := make([]any, 0, len(deps)+2)
	args = append(args, name, version)
	args = append(args, deps...)
	sum := r.engine.Sum(args...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[name]; ok {
		if prev != sum {
			return Fingerprint{}, fmt.Errorf("register %q at version %d (have version %d): %w",
				name, version, r.version[name], ErrVersionConflict)
		}
		return prev, nil
	}
	r.entries[name] = sum
	r.version[name] = version
	return sum, nil
}

// Lookup returns the fingerprint registered for name.
func (r *Registry) Lookup(name string) (Fingerprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum, ok := r.entries[name]
	return sum, ok
}

// VersionOf returns the version registered for name.
func (r *Registry) VersionOf(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.version[name]
	return v, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register binds fn to name and version in r.
func Register[F any](r *Registry, name string, fn F, version int, deps ...any) (*Versioned[F], error) {
	sum, err := r.Add(name, version, deps...)
	if err != nil {
		return nil, err
	}
	return &Versioned[F]{
		Fn:      fn,
		name:    name,
		version: version,
		sum:     sum,
	}, nil
}

// MustRegister is like Register on the default registry but panics on error.
// Intended for package-level variable initialization.
func MustRegister[F any](name string, fn F, version int, deps ...any) *Versioned[F] {
	v, err := Register(defaultRegistry, name, fn, version, deps...)
	if err != nil {
		panic(err)
	}
	return v
}
