package geocode

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KaramelBytes/minedash/internal/utils"
	"golang.org/x/sync/errgroup"
)

type entry struct {
	p     Point
	ok    bool
	until time.Time // zero: never expires
}

// Resolver memoises lookups and resolves batches with bounded parallelism.
// It never returns errors: failures are logged at debug level and the name is
// reported as unresolved.
type Resolver struct {
	src     Lookuper
	log     *utils.Logger
	workers int
	errTTL  time.Duration

	mu    sync.Mutex
	cache map[string]entry
	now   func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorkers bounds concurrent lookups in ResolveAll.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *utils.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l.With("geocode")
		}
	}
}

// WithErrorTTL sets how long a failed lookup (other than a plain non-match)
// is remembered before it is retried.
func WithErrorTTL(d time.Duration) Option {
	return func(r *Resolver) { r.errTTL = d }
}

// NewResolver wraps src with a process-wide memo cache.
func NewResolver(src Lookuper, opts ...Option) *Resolver {
	r := &Resolver{
		src:     src,
		log:     utils.Discard(),
		workers: 4,
		errTTL:  10 * time.Minute,
		cache:   map[string]entry{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the point for name, or false when it cannot be resolved.
func (r *Resolver) Resolve(ctx context.Context, name string) (Point, bool) {
	key := Key(name)
	if key == "" {
		return Point{}, false
	}
	if e, hit := r.cached(key); hit {
		return withEntity(e.p, name), e.ok
	}
	p, ok := r.lookup(ctx, key, name)
	return withEntity(p, name), ok
}

// ResolveAll resolves distinct names once each and returns only the resolved
// ones, keyed by the name as given.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) map[string]Point {
	out := make(map[string]Point, len(names))
	var mu sync.Mutex
	pending := map[string][]string{} // key -> spellings as given
	var order []string
	for _, n := range names {
		key := Key(n)
		if key == "" {
			continue
		}
		if e, hit := r.cached(key); hit {
			if e.ok {
				out[n] = withEntity(e.p, n)
			}
			continue
		}
		if _, seen := pending[key]; !seen {
			order = append(order, key)
		}
		pending[key] = append(pending[key], n)
	}
	if len(order) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, key := range order {
		key := key
		spellings := pending[key]
		g.Go(func() error {
			p, ok := r.lookup(gctx, key, spellings[0])
			if !ok {
				return nil
			}
			mu.Lock()
			for _, n := range spellings {
				out[n] = withEntity(p, n)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	r.log.Debug("resolved %d names (%d looked up)", len(out), len(order))
	return out
}

// Len reports the number of memoised names.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *Resolver) cached(key string) (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[key]
	if !ok {
		return entry{}, false
	}
	if !e.until.IsZero() && r.now().After(e.until) {
		delete(r.cache, key)
		return entry{}, false
	}
	return e, true
}

func (r *Resolver) lookup(ctx context.Context, key, name string) (Point, bool) {
	p, err := r.src.Lookup(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			r.log.Debug("lookup %q cancelled: %v", name, err)
			return Point{}, false
		}
		e := entry{}
		if !errors.Is(err, ErrNoMatch) {
			e.until = r.now().Add(r.errTTL)
		}
		r.log.Debug("lookup %q failed: %v", name, err)
		r.store(key, e)
		return Point{}, false
	}
	r.store(key, entry{p: p, ok: true})
	return p, true
}

func (r *Resolver) store(key string, e entry) {
	r.mu.Lock()
	r.cache[key] = e
	r.mu.Unlock()
}

func withEntity(p Point, name string) Point {
	p.Entity = name
	return p
}
