// Package utxoset maintains the index of unspent transaction outputs that backs balances and
// coin selection.
//
// The index lives in the same store as the chain. It is kept current either by folding each
// mined block in (ApplyBlock inside the block commit, or Update right after it) or by a full
// Reindex from the chain. A tip marker records which block the index reflects, so Sync can tell
// when a rebuild is needed.
package utxoset

import (
	"context"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/tracing"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/ordishs/gocore"
)

var stat = gocore.NewStat("utxoset")

type UTXOSet struct {
	logger ulogger.Logger
	handle *blockchain_store.Handle
}

func New(logger ulogger.Logger, handle *blockchain_store.Handle) *UTXOSet {
	initPrometheusMetrics()

	return &UTXOSet{
		logger: logger,
		handle: handle,
	}
}

// ApplyBlock folds block into the index through txn: every input removes the output it spends,
// then the transaction's outputs are added as a new entry. Transactions are applied in block
// order, so a transaction may spend an output created earlier in the same block.
//
// An input referencing a missing entry or an output index no longer in it fails with
// errors.ErrSpent. The caller must hold the writer lock; txn is rolled back on error.
func (u *UTXOSet) ApplyBlock(txn blockchain_store.Txn, block *model.Block) error {
	start := gocore.CurrentTime()
	defer stat.NewStat("ApplyBlock").AddTime(start)

	for _, tx := range block.Transactions {
		if !tx.IsCoinbase() {
			for _, in := range tx.Inputs {
				if err := spendOutput(txn, in); err != nil {
					return err
				}
			}
		}

		_, err := txn.GetUTXOEntry(&tx.ID)
		if err == nil {
			return errors.NewTxAlreadyExistsError("transaction %s already has unspent outputs", util.HashToHex(tx.ID))
		}

		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		outputs := model.NewUnspentOutputs(tx)
		if len(outputs) == 0 {
			continue
		}

		if err = txn.PutUTXOEntry(&tx.ID, outputs); err != nil {
			return err
		}
	}

	return txn.PutUTXOTipHash(&block.Hash)
}

func spendOutput(txn blockchain_store.Txn, in *model.TXInput) error {
	prevHash := in.PrevTxHash()
	if prevHash == nil || in.OutputIndex < 0 {
		return errors.NewTxInvalidError("malformed input %x:%d", in.PrevTxID, in.OutputIndex)
	}

	entry, err := txn.GetUTXOEntry(prevHash)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.NewSpentError("output %s:%d is not unspent", util.HashToHex(*prevHash), in.OutputIndex)
		}

		return err
	}

	remaining, found := entry.Remove(uint32(in.OutputIndex))
	if !found {
		return errors.NewSpentError("output %s:%d is already spent", util.HashToHex(*prevHash), in.OutputIndex)
	}

	if len(remaining) == 0 {
		return txn.DeleteUTXOEntry(prevHash)
	}

	return txn.PutUTXOEntry(prevHash, remaining)
}

// Update folds a block that has already been committed to the chain into the index, for chains
// that run without a block applier. It must be called once per block, in chain order; calling
// it again for the block the index already reflects is a no-op.
func (u *UTXOSet) Update(ctx context.Context, block *model.Block) error {
	ctx, _, deferFn := tracing.StartTracing(ctx, "UTXOSet:Update",
		tracing.WithParentStat(stat),
		tracing.WithHistogram(prometheusUpdateDuration),
	)
	defer deferFn()

	return u.handle.Exclusive(func() error {
		utxoTip, err := u.handle.Store().GetUTXOTipHash(ctx)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		if utxoTip != nil && *utxoTip == block.Hash {
			u.logger.Debugf("[UTXOSet] index already at block %s", block.HashHex())
			return nil
		}

		if utxoTip != nil && *utxoTip != block.PrevBlockHash {
			u.logger.Warnf("[UTXOSet] index is at %s, applying block %s whose parent is %s", util.HashToHex(*utxoTip), block.HashHex(), util.HashToHex(block.PrevBlockHash))
		}

		return u.handle.UpdateIndex(ctx, func(txn blockchain_store.Txn) error {
			return u.ApplyBlock(txn, block)
		})
	})
}
