package scheduler

import (
	"fmt"
	"sort"
	"sync"
)

// LockManager provides keyed mutual exclusion for read-modify-write cycles.
// Each key gets its own mutex, so completing task 3 never waits on task 4
// while two completions of task 3 are strictly serialised.
type LockManager struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-key mutexes
}

// NewLockManager creates a new LockManager.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// TaskKey is the lock key guarding a task's scheduling fields.
func TaskKey(id TaskID) string {
	return fmt.Sprintf("task:%d", id)
}

// HouseholdKey is the lock key guarding a household's dependency graph.
func HouseholdKey(id HouseholdID) string {
	return fmt.Sprintf("household:%d", id)
}

// Lock acquires the mutex for key, creating it on first use.
func (r *LockManager) Lock(key string) {
	r.mu.Lock()
	keyLock, exists := r.locks[key]
	if !exists {
		keyLock = &sync.Mutex{}
		r.locks[key] = keyLock
	}
	r.mu.Unlock()

	// Acquire outside the manager lock to avoid contention
	keyLock.Lock()
}

// Unlock releases the mutex for key.
func (r *LockManager) Unlock(key string) {
	r.mu.Lock()
	keyLock, exists := r.locks[key]
	r.mu.Unlock()

	if exists {
		keyLock.Unlock()
	}
}

// LockAll acquires every key in sorted order to prevent deadlocks.
func (r *LockManager) LockAll(keys []string) {
	for _, key := range sortedCopy(keys) {
		r.Lock(key)
	}
}

// UnlockAll releases keys in reverse sorted order.
func (r *LockManager) UnlockAll(keys []string) {
	sorted := sortedCopy(keys)
	for i := len(sorted) - 1; i >= 0; i-- {
		r.Unlock(sorted[i])
	}
}

func sortedCopy(keys []string) []string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	// A repeated key would deadlock on its own mutex
	out := sorted[:0]
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		out = append(out, key)
	}
	return out
}
