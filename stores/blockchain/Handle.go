package blockchain

import (
	"context"
	"sync"
)

// Handle is the storage context shared by the chain and the UTXO set. It owns the lock that
// keeps the chain single-writer and the lock that keeps readers from observing the UTXO index
// while it is being rebuilt.
type Handle struct {
	store   Store
	writeMu sync.Mutex
	indexMu sync.RWMutex
}

func NewHandle(store Store) *Handle {
	return &Handle{store: store}
}

func (h *Handle) Store() Store {
	return h.store
}

// Exclusive runs fn holding the writer lock. It is not reentrant.
func (h *Handle) Exclusive(fn func() error) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	return fn()
}

// UpdateIndex runs a store transaction that touches the UTXO index, holding the index write
// lock for its duration. Callers are expected to be inside Exclusive.
func (h *Handle) UpdateIndex(ctx context.Context, fn func(txn Txn) error) error {
	h.indexMu.Lock()
	defer h.indexMu.Unlock()

	return h.store.Update(ctx, fn)
}

// ReadIndex runs fn holding the index read lock. Any number of readers may run together.
func (h *Handle) ReadIndex(fn func() error) error {
	h.indexMu.RLock()
	defer h.indexMu.RUnlock()

	return fn()
}

func (h *Handle) Close(ctx context.Context) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	return h.store.Close(ctx)
}
