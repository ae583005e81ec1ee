package cache

import "sync"

// KeyedMutex provides lock striping over string keys. Bars for one symbol
// must be processed in arrival order while different symbols proceed in
// parallel, so callers lock the symbol's stripe rather than a global mutex.
type KeyedMutex struct {
	stripes [numShards]sync.Mutex
}

// Lock acquires the stripe owning key.
func (m *KeyedMutex) Lock(key string) {
	m.stripes[shardIndex(key)].Lock()
}

// Unlock releases the stripe owning key.
func (m *KeyedMutex) Unlock(key string) {
	m.stripes[shardIndex(key)].Unlock()
}
