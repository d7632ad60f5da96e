// Package lock serializes Bates allocation per (case, prefix) series.
package lock

import (
	"context"
	"fmt"
	"sync"

	id "evidex/pkg/domain"
	"evidex/pkg/platform/sentinel"
)

// Locker grants exclusive ownership of a key until release is called.
// Acquire gives up with sentinel.ErrLockNotAcquired when ctx ends first.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SeriesKey names the lock of one Bates series.
func SeriesKey(caseID id.CaseID, prefix string) string {
	return "bates:" + caseID.String() + ":" + prefix
}

// Local is an in-process keyed mutex. Entries are reference counted and
// removed once nobody holds or waits on them.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("acquire %s: %w: %w", key, sentinel.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many keys are tracked; tests use it to check cleanup.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
