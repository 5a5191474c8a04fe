// Package blockchain defines the storage contract for blocks, the chain tip and the UTXO index.
// Backends live in the memory, leveldb and sql sub packages; the factory package selects one
// from a store URL.
package blockchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/model"
)

// UTXOVisitor is called once per UTXO index entry. Returning false stops the iteration.
type UTXOVisitor func(txID chainhash.Hash, outputs model.UnspentOutputs) bool

type Store interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// GetTipHash returns errors.ErrNotFound when no chain has been created yet.
	GetTipHash(ctx context.Context) (*chainhash.Hash, error)
	// GetBlock returns errors.ErrBlockNotFound when hash is unknown.
	GetBlock(ctx context.Context, hash *chainhash.Hash) (*model.Block, error)

	// GetUTXOEntry returns errors.ErrNotFound when the transaction has no unspent outputs.
	GetUTXOEntry(ctx context.Context, txID *chainhash.Hash) (model.UnspentOutputs, error)
	// IterateUTXOIndex visits entries in ascending tx ID byte order.
	IterateUTXOIndex(ctx context.Context, fn UTXOVisitor) error
	// GetUTXOTipHash returns the hash of the block the UTXO index was last brought up to,
	// or errors.ErrNotFound when the index has never been written.
	GetUTXOTipHash(ctx context.Context) (*chainhash.Hash, error)

	// Update runs fn inside one write transaction. Nothing is persisted when fn returns an error.
	Update(ctx context.Context, fn func(txn Txn) error) error

	Close(ctx context.Context) error
}

// Txn is the write side of a store transaction. Reads through a Txn observe its own writes.
type Txn interface {
	PutTipHash(hash *chainhash.Hash) error
	PutBlock(block *model.Block) error

	GetUTXOEntry(txID *chainhash.Hash) (model.UnspentOutputs, error)
	PutUTXOEntry(txID *chainhash.Hash, outputs model.UnspentOutputs) error
	DeleteUTXOEntry(txID *chainhash.Hash) error
	ClearUTXOIndex() error
	PutUTXOTipHash(hash *chainhash.Hash) error
}
