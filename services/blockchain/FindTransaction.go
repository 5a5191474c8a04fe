package blockchain

import (
	"context"
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/tracing"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/greatroar/blobloom"
)

// blockIndexEntry lets FindTransaction walk back over blocks it has seen before without
// loading them: the link to the previous block and a filter over the block's transaction IDs.
type blockIndexEntry struct {
	prevHash chainhash.Hash
	filter   *blobloom.Filter
}

func txBloomKey(txID chainhash.Hash) uint64 {
	return binary.BigEndian.Uint64(txID[:8])
}

func (b *Blockchain) indexBlock(block *model.Block) {
	if _, ok := b.blockIndex.Get(block.Hash); ok {
		return
	}

	filter := blobloom.NewOptimized(blobloom.Config{
		Capacity: uint64(len(block.Transactions)),
		FPRate:   b.settings.Blockchain.BloomFPRate,
	})

	for _, tx := range block.Transactions {
		filter.Add(txBloomKey(tx.ID))
	}

	// concurrent readers may index the same block; the first entry wins
	b.blockIndex.SetIfAbsent(block.Hash, &blockIndexEntry{
		prevHash: block.PrevBlockHash,
		filter:   filter,
	})
}

// FindTransaction walks the chain back from the tip and returns the transaction with the given
// ID. It returns errors.ErrTxNotFound when no block holds it.
func (b *Blockchain) FindTransaction(ctx context.Context, txID chainhash.Hash) (*model.Transaction, error) {
	ctx, _, deferFn := tracing.StartTracing(ctx, "Blockchain:FindTransaction",
		tracing.WithHistogram(prometheusFindTransaction),
	)
	defer deferFn()

	key := txBloomKey(txID)
	hash := b.TipHash()

	for hash != util.ZeroHash {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewContextCanceledError("find transaction canceled", err)
		}

		if entry, ok := b.blockIndex.Get(hash); ok && !entry.filter.Has(key) {
			prometheusBloomSkips.Inc()

			hash = entry.prevHash

			continue
		}

		block, err := b.GetBlock(ctx, &hash)
		if err != nil {
			if errors.Is(err, errors.ErrBlockNotFound) {
				break
			}

			return nil, err
		}

		for _, tx := range block.Transactions {
			if tx.ID == txID {
				return tx, nil
			}
		}

		hash = block.PrevBlockHash
	}

	return nil, errors.NewTxNotFoundError("transaction %s not found", util.HashToHex(txID))
}
