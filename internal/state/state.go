package state

import "sync"

// Store is the in-process Config. The lock is held only for the copy in or out.
type Store struct {
	mu    sync.RWMutex
	state Snapshot
}

func NewStore() *Store {
	return &Store{state: Defaults()}
}

func (store *Store) Snapshot() Snapshot {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) Running() bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state.Running
}

func (store *Store) Set(f Field, v float64) Snapshot {
	store.mu.Lock()
	store.state = store.state.With(f, v)
	snap := store.state
	store.mu.Unlock()
	return snap
}

func (store *Store) Adjust(f Field, delta float64) Snapshot {
	store.mu.Lock()
	store.state = store.state.With(f, store.state.Get(f)+delta)
	snap := store.state
	store.mu.Unlock()
	return snap
}

func (store *Store) SetTrajectory(t Trajectory) error {
	if !t.Valid() {
		return ErrUnknownTrajectory
	}
	store.mu.Lock()
	store.state.Trajectory = t
	store.mu.Unlock()
	return nil
}

func (store *Store) RequestShutdown() bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	if !store.state.Running {
		return false
	}
	store.state.Running = false
	return true
}
