package service

import (
	"sort"
	"sync"
)

// playerLocks serializes the three write paths on player state. Live match
// application and the decay sweep hold per-player locks; a recomputation run
// holds the global lock and excludes everything else.
type playerLocks struct {
	global sync.RWMutex

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPlayerLocks() *playerLocks {
	return &playerLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *playerLocks) forPlayer(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lockPlayers acquires the locks for the given players in a stable order
// and returns the unlock function.
func (l *playerLocks) lockPlayers(ids []string) func() {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	l.global.RLock()
	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		m := l.forPlayer(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		l.global.RUnlock()
	}
}

// lockAll takes the global lock for a full recomputation run.
func (l *playerLocks) lockAll() func() {
	l.global.Lock()
	return l.global.Unlock
}
