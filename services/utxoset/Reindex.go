package utxoset

import (
	"context"
	"iter"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/tracing"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/dolthub/swiss"
)

// Chain is the read side of the blockchain the index is built from.
type Chain interface {
	// Blocks yields the chain tip first.
	Blocks(ctx context.Context) iter.Seq2[*model.Block, error]
	TipHash() chainhash.Hash
}

type outpoint struct {
	txID  chainhash.Hash
	index uint32
}

// Reindex rebuilds the index from scratch. The first pass over the chain collects every spent
// outpoint, the second keeps the outputs not in that set. The old index is replaced in the same
// store transaction that writes the new one, so a failed or canceled reindex leaves it as it was.
func (u *UTXOSet) Reindex(ctx context.Context, chain Chain) error {
	ctx, _, deferFn := tracing.StartTracing(ctx, "UTXOSet:Reindex",
		tracing.WithParentStat(stat),
		tracing.WithHistogram(prometheusReindexDuration),
		tracing.WithCounter(prometheusReindexes),
		tracing.WithLogMessage(u.logger, "[UTXOSet] reindexing"),
	)
	defer deferFn()

	return u.handle.Exclusive(func() error {
		return u.reindex(ctx, chain)
	})
}

func (u *UTXOSet) reindex(ctx context.Context, chain Chain) error {
	spent := swiss.NewMap[outpoint, struct{}](1024)

	var (
		tip    *chainhash.Hash
		blocks int
	)

	for block, err := range chain.Blocks(ctx) {
		if err != nil {
			return err
		}

		if tip == nil {
			tip = &block.Hash
		}

		blocks++

		for _, tx := range block.Transactions {
			if tx.IsCoinbase() {
				continue
			}

			for _, in := range tx.Inputs {
				prevHash := in.PrevTxHash()
				if prevHash == nil || in.OutputIndex < 0 {
					return errors.NewTxInvalidError("transaction %s has malformed input %x:%d", util.HashToHex(tx.ID), in.PrevTxID, in.OutputIndex)
				}

				spent.Put(outpoint{txID: *prevHash, index: uint32(in.OutputIndex)}, struct{}{})
			}
		}
	}

	if tip == nil {
		return errors.NewChainNotInitializedError("cannot reindex an empty chain")
	}

	unspent := swiss.NewMap[chainhash.Hash, model.UnspentOutputs](uint32(blocks)) //nolint:gosec // block count fits

	for block, err := range chain.Blocks(ctx) {
		if err != nil {
			return err
		}

		for _, tx := range block.Transactions {
			var outputs model.UnspentOutputs

			for _, out := range model.NewUnspentOutputs(tx) {
				if _, ok := spent.Get(outpoint{txID: tx.ID, index: out.Index}); ok {
					continue
				}

				outputs = append(outputs, out)
			}

			if len(outputs) > 0 {
				unspent.Put(tx.ID, outputs)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("reindex canceled", err)
	}

	err := u.handle.UpdateIndex(ctx, func(txn blockchain_store.Txn) error {
		if err := txn.ClearUTXOIndex(); err != nil {
			return err
		}

		var putErr error

		unspent.Iter(func(txID chainhash.Hash, outputs model.UnspentOutputs) bool {
			putErr = txn.PutUTXOEntry(&txID, outputs)
			return putErr != nil
		})

		if putErr != nil {
			return putErr
		}

		return txn.PutUTXOTipHash(tip)
	})
	if err != nil {
		return err
	}

	prometheusEntries.Set(float64(unspent.Count()))

	u.logger.Infof("[UTXOSet] reindexed %d blocks up to %s, %d transactions with unspent outputs", blocks, util.HashToHex(*tip), unspent.Count())

	return nil
}

// Sync rebuilds the index when it does not reflect the chain tip, for example after a crash
// between a block commit and the index update. It reports whether a rebuild ran.
func (u *UTXOSet) Sync(ctx context.Context, chain Chain) (bool, error) {
	utxoTip, err := u.handle.Store().GetUTXOTipHash(ctx)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return false, err
	}

	chainTip := chain.TipHash()

	if utxoTip != nil && *utxoTip == chainTip {
		return false, nil
	}

	if utxoTip == nil {
		u.logger.Infof("[UTXOSet] no index found, building it")
	} else {
		u.logger.Warnf("[UTXOSet] index is at %s, chain tip is %s, rebuilding", util.HashToHex(*utxoTip), util.HashToHex(chainTip))
	}

	if err = u.Reindex(ctx, chain); err != nil {
		return false, err
	}

	return true, nil
}
