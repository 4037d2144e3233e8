package restive

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

// Registry caches compiled service metadata and builds clients from it.
//
// Each service struct type is compiled once per Registry; every later New
// for the same type reuses the cached factory. A Registry is safe for
// concurrent use. Compile failures are not cached, so they are reported
// again on the next attempt.
type Registry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]*factory

	logger       *slog.Logger
	interceptors []Interceptor

	builds atomic.Int64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[reflect.Type]*factory),
	}
}

// WithLogger sets the logger used for build diagnostics.
// If not set, slog.Default() will be used.
// It returns the registry for chaining.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	return r
}

// WithInterceptor adds an interceptor to every client built afterwards.
// Interceptors run in the order they were added.
// It returns the registry for chaining.
func (r *Registry) WithInterceptor(i Interceptor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors = append(r.interceptors, i)
	return r
}

// Builds reports how many factories this Registry has compiled.
func (r *Registry) Builds() int64 {
	return r.builds.Load()
}

// Len reports how many service types are cached.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// factoryFor returns the cached factory for t, compiling it on first use.
// Compilation runs without the lock held; if two goroutines race, the first
// to store wins and the other's result is discarded.
func (r *Registry) factoryFor(t reflect.Type) (*factory, []Interceptor, error) {
	r.mu.RLock()
	f, ok := r.factories[t]
	interceptors := r.interceptors
	logger := r.logger
	r.mu.RUnlock()
	if ok {
		return f, interceptors, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	desc, err := describe(t)
	if err != nil {
		logger.Debug("service build failed", slog.String("type", typeName(t)), slog.Any("error", err))
		return nil, nil, err
	}
	built := build(t, desc)
	r.builds.Add(1)
	logger.Debug("service built",
		slog.String("service", desc.Name),
		slog.Int("endpoints", len(desc.Methods)))

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.factories[t]; ok {
		return f, r.interceptors, nil
	}
	r.factories[t] = built
	return built, r.interceptors, nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
