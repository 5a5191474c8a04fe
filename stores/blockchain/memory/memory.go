// Package memory is an in-process store backend. It keeps the same serialized values as the
// persistent backends, so it exercises the full encode and decode path in tests.
package memory

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/util"
)

type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return http.StatusServiceUnavailable, "Memory Store closed", errors.ErrStorageUnavailable
	}

	return http.StatusOK, "Memory Store", nil
}

// Get implements blockchain.KVReader.
func (m *Memory) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, errors.NewStorageUnavailableError("memory store is closed")
	}

	v, ok := m.data[string(key)]

	return v, ok, nil
}

func (m *Memory) GetTipHash(_ context.Context) (*chainhash.Hash, error) {
	v, ok, err := m.Get(blockchain.TipKey)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeHash(blockchain.TipKey, v, ok)
}

func (m *Memory) GetUTXOTipHash(_ context.Context) (*chainhash.Hash, error) {
	v, ok, err := m.Get(blockchain.UTXOTipKey)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeHash(blockchain.UTXOTipKey, v, ok)
}

func (m *Memory) GetBlock(_ context.Context, hash *chainhash.Hash) (*model.Block, error) {
	v, ok, err := m.Get(blockchain.BlockKey(hash))
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeBlock(hash, v, ok)
}

func (m *Memory) GetUTXOEntry(_ context.Context, txID *chainhash.Hash) (model.UnspentOutputs, error) {
	v, ok, err := m.Get(blockchain.UTXOKey(txID))
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeUTXOEntry(txID, v, ok)
}

func (m *Memory) IterateUTXOIndex(ctx context.Context, fn blockchain.UTXOVisitor) error {
	type entry struct {
		key   string
		value []byte
	}

	m.mu.RLock()

	if m.closed {
		m.mu.RUnlock()
		return errors.NewStorageUnavailableError("memory store is closed")
	}

	prefix := string(blockchain.UTXOPrefix)
	entries := make([]entry, 0)

	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, entry{key: k, value: v})
		}
	}

	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare([]byte(entries[i].key), []byte(entries[j].key)) < 0
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return errors.NewContextCanceledError("utxo index iteration canceled", err)
		}

		txID, ok := blockchain.TxIDFromUTXOKey([]byte(e.key))
		if !ok {
			return errors.NewStorageError("corrupt utxo key %x", e.key)
		}

		outputs, err := model.NewUnspentOutputsFromBytes(e.value)
		if err != nil {
			return errors.NewStorageError("failed to decode utxo entry %s", util.HashToHex(txID), err)
		}

		if !fn(txID, outputs) {
			return nil
		}
	}

	return nil
}

// Update stages every write of fn and applies them under a single lock once fn succeeds.
func (m *Memory) Update(ctx context.Context, fn func(txn blockchain.Txn) error) error {
	txn := blockchain.NewKVTxn(m)

	if err := fn(txn); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("memory store update canceled", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.NewStorageUnavailableError("memory store is closed")
	}

	if txn.Cleared {
		prefix := string(blockchain.UTXOPrefix)

		for k := range m.data {
			if strings.HasPrefix(k, prefix) {
				delete(m.data, k)
			}
		}
	}

	for k := range txn.Deletes {
		delete(m.data, k)
	}

	for k, v := range txn.Writes {
		m.data[k] = v
	}

	return nil
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
