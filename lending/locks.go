// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"slices"
	"sync"

	"github.com/luxfi/ids"
)

const (
	poolKeyPrefix     = "pool/"
	positionKeyPrefix = "position/"
)

func poolKey(asset ids.ID) string {
	return poolKeyPrefix + string(asset[:])
}

func positionKey(owner ids.ShortID) string {
	return positionKeyPrefix + string(owner[:])
}

type keyLock struct {
	sync.Mutex
	refs int
}

// lockSet hands out exclusive locks on record keys. Keys are always acquired
// in sorted order so two operations can never wait on each other in a cycle.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newLockSet() *lockSet {
	return &lockSet{
		locks: make(map[string]*keyLock),
	}
}

// Lock blocks until every key is held and returns the function releasing
// them.
func (s *lockSet) Lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, len(keys))
	for i, key := range keys {
		held[i] = s.acquire(key)
		held[i].Lock()
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			held[i].Unlock()
			s.release(keys[i])
		}
	}
}

func (s *lockSet) acquire(key string) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	return l
}

func (s *lockSet) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

// len returns the number of keys currently held or waited on.
func (s *lockSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
