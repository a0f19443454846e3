// Package loader provides batched, request-scoped loading of related rows
// so nested GraphQL selections do not trigger N+1 queries.
//
// A Loader collects keys over a short window (or until the batch is full)
// and resolves them with a single batch function call. Results are
// positionally aligned with the requested keys.
//
// Loaders are request-scoped: create them per request and carry them in
// the context with WithLoaders/For.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is reported for keys missing from a batch result.
var ErrNotFound = errors.New("loader: entity not found")

// DefaultWait is the collection window before a batch is dispatched.
const DefaultWait = 2 * time.Millisecond

// DefaultMaxBatch caps the number of keys in a single batch; 0 means
// unbounded.
const DefaultMaxBatch = 100

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads a batch of values for the given keys. The returned
// slices must align positionally with keys; a single-element error slice
// fails the whole batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// Option configures a Loader.
type Option func(*config)

type config struct {
	wait     time.Duration
	maxBatch int
}

// WithWait sets the key collection window.
func WithWait(d time.Duration) Option {
	return func(c *config) { c.wait = d }
}

// WithMaxBatch caps the batch size; a full batch dispatches immediately.
func WithMaxBatch(n int) Option {
	return func(c *config) { c.maxBatch = n }
}

// Loader batches and caches loads of V by key K.
type Loader[K comparable, V any] struct {
	fetch    BatchFunc[K, V]
	wait     time.Duration
	maxBatch int

	mu    sync.Mutex
	cache map[K]func() (V, error)
	batch *loaderBatch[K, V]
}

// New returns a loader around the given batch function.
func New[K comparable, V any](fetch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	cfg := config{wait: DefaultWait, maxBatch: DefaultMaxBatch}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader[K, V]{
		fetch:    fetch,
		wait:     cfg.wait,
		maxBatch: cfg.maxBatch,
		cache:    make(map[K]func() (V, error)),
	}
}

type loaderBatch[K comparable, V any] struct {
	keys    []K
	index   map[K]int
	data    []V
	errs    []error
	closing bool
	done    chan struct{}
}

// Load fetches the value for a key, blocking until its batch resolves.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(ctx, key)()
}

// LoadThunk queues the key in the current batch and returns a thunk that
// blocks until the batch resolves. Repeated loads of the same key share
// one thunk.
func (l *Loader[K, V]) LoadThunk(ctx context.Context, key K) func() (V, error) {
	l.mu.Lock()
	if thunk, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return thunk
	}
	if l.batch == nil {
		l.batch = &loaderBatch[K, V]{
			index: make(map[K]int),
			done:  make(chan struct{}),
		}
	}
	b := l.batch
	pos, ok := b.index[key]
	if !ok {
		pos = len(b.keys)
		b.keys = append(b.keys, key)
		b.index[key] = pos
		if pos == 0 {
			go b.startTimer(ctx, l)
		}
		if l.maxBatch != 0 && len(b.keys) >= l.maxBatch {
			if !b.closing {
				b.closing = true
				l.batch = nil
				go b.dispatch(ctx, l)
			}
		}
	}
	thunk := func() (V, error) {
		<-b.done
		var v V
		if pos < len(b.data) {
			v = b.data[pos]
		}
		switch {
		case len(b.errs) == 1:
			return v, b.errs[0]
		case b.errs != nil && b.errs[pos] != nil:
			return v, b.errs[pos]
		}
		return v, nil
	}
	l.cache[key] = thunk
	l.mu.Unlock()
	return thunk
}

// LoadAll fetches values for all keys, batching them together.
func (l *Loader[K, V]) LoadAll(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(ctx, key)
	}
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}

// Prime seeds the cache with a known value, e.g. after a mutation.
// Existing cached results are left untouched.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	if _, ok := l.cache[key]; !ok {
		l.cache[key] = func() (V, error) { return value, nil }
	}
	l.mu.Unlock()
}

// Clear removes a key from the cache so the next load refetches it.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

func (b *loaderBatch[K, V]) startTimer(ctx context.Context, l *Loader[K, V]) {
	time.Sleep(l.wait)
	l.mu.Lock()
	if b.closing {
		l.mu.Unlock()
		return
	}
	b.closing = true
	l.batch = nil
	l.mu.Unlock()
	b.dispatch(ctx, l)
}

func (b *loaderBatch[K, V]) dispatch(ctx context.Context, l *Loader[K, V]) {
	b.data, b.errs = l.fetch(ctx, b.keys)
	close(b.done)
}

// OrderByKeys reorders values to align positionally with the requested
// keys. Missing keys yield zero values with ErrNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError is OrderByKeys with missing keys left as zero values
// instead of errors. Use it for optional relationships.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups values by a key function, for to-many relationships
// where multiple rows share a foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		result[keyFn(v)] = append(result[keyFn(v)], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to align positionally with
// the requested keys. Keys without a group yield nil.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

type ctxKey struct{}

// WithLoaders carries a request-scoped loader registry in the context.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts the loader registry from the context; the zero value of T
// when absent.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
