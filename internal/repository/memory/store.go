package memory

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Policy bounds how long and how many entries a store keeps
type Policy struct {
	TTL        time.Duration
	MaxEntries int
}

// SweepResult counts entries removed by one sweep
type SweepResult struct {
	Expired  int
	Overflow int
}

// Total returns the number of evicted entries
func (r SweepResult) Total() int {
	return r.Expired + r.Overflow
}

type entry[T any] struct {
	mu      sync.Mutex
	value   T
	present bool
	deleted bool
	touched time.Time
}

// Store is a keyed map where writers to different keys never share a lock.
// Values are cloned on the way in and out so callers never alias stored state.
type Store[T any] struct {
	items  sync.Map // string -> *entry[T]
	size   atomic.Int64
	policy Policy
	fresh  func() T
	clone  func(T) T
	now    func() time.Time
}

// Option configures a Store
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for touch times
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewStore creates a store. fresh builds the value for an unseen key.
func NewStore[T any](policy Policy, fresh func() T, clone func(T) T, opts ...Option) *Store[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		policy: policy,
		fresh:  fresh,
		clone:  clone,
		now:    o.now,
	}
}

// Get returns a copy of the stored value
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T

	v, ok := s.items.Load(key)
	if !ok {
		return zero, false
	}
	e := v.(*entry[T])

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || !e.present {
		return zero, false
	}
	e.touched = s.now()
	return s.clone(e.value), true
}

// Put replaces the value for key
func (s *Store[T]) Put(key string, value T) {
	e := s.lock(key)
	defer e.mu.Unlock()
	s.set(e, s.clone(value))
}

// Update runs fn on a working copy of the current value (or a fresh one) and
// stores it when fn succeeds
func (s *Store[T]) Update(key string, fn func(T) error) (T, error) {
	e := s.lock(key)
	defer e.mu.Unlock()

	var work T
	if e.present {
		work = s.clone(e.value)
	} else {
		work = s.fresh()
	}

	if err := fn(work); err != nil {
		if !e.present {
			s.drop(key, e)
		}
		var zero T
		return zero, err
	}

	s.set(e, work)
	return s.clone(work), nil
}

// Len returns the number of stored values
func (s *Store[T]) Len() int {
	return int(s.size.Load())
}

// Sweep removes entries idle longer than the TTL, then the least recently
// touched entries beyond MaxEntries
func (s *Store[T]) Sweep() SweepResult {
	type candidate struct {
		key     string
		e       *entry[T]
		touched time.Time
	}

	var (
		res       SweepResult
		remaining []candidate
		cutoff    = s.now().Add(-s.policy.TTL)
	)

	s.items.Range(func(k, v any) bool {
		key, e := k.(string), v.(*entry[T])

		e.mu.Lock()
		touched := e.touched
		if s.policy.TTL > 0 && touched.Before(cutoff) {
			if e.present {
				res.Expired++
			}
			s.drop(key, e)
			e.mu.Unlock()
			return true
		}
		e.mu.Unlock()

		remaining = append(remaining, candidate{key: key, e: e, touched: touched})
		return true
	})

	excess := len(remaining) - s.policy.MaxEntries
	if s.policy.MaxEntries <= 0 || excess <= 0 {
		return res
	}

	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].touched.Before(remaining[j].touched)
	})
	for _, c := range remaining {
		if excess == 0 {
			break
		}
		c.e.mu.Lock()
		// touched again since the scan: keep it
		if !c.e.deleted && c.e.touched.Equal(c.touched) {
			if c.e.present {
				res.Overflow++
			}
			s.drop(c.key, c.e)
			excess--
		}
		c.e.mu.Unlock()
	}

	return res
}

// lock returns the live entry for key with its mutex held
func (s *Store[T]) lock(key string) *entry[T] {
	for {
		v, _ := s.items.LoadOrStore(key, &entry[T]{touched: s.now()})
		e := v.(*entry[T])
		e.mu.Lock()
		if !e.deleted {
			return e
		}
		// evicted while we waited; retry against the replacement
		e.mu.Unlock()
	}
}

// set stores value; e.mu must be held
func (s *Store[T]) set(e *entry[T], value T) {
	if !e.present {
		e.present = true
		s.size.Add(1)
	}
	e.value = value
	e.touched = s.now()
}

// drop detaches e from the map; e.mu must be held
func (s *Store[T]) drop(key string, e *entry[T]) {
	if e.deleted {
		return
	}
	e.deleted = true
	if e.present {
		e.present = false
		s.size.Add(-1)
	}
	s.items.CompareAndDelete(key, e)
}
