package blockchain

import (
	"context"
	"iter"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/util"
)

// Iterator walks the chain from the tip it was created at back to genesis. Blocks mined after
// the iterator was created are not visited.
type Iterator struct {
	chain       *Blockchain
	currentHash chainhash.Hash
	bits        uint32
	pending     *model.Block
	last        *model.Block
	done        bool
	err         error
}

func (b *Blockchain) Iterator() *Iterator {
	return &Iterator{
		chain:       b,
		currentHash: b.TipHash(),
		bits:        b.DifficultyBits(),
	}
}

// HasNext loads the next block if there is one. It returns false at the end of the chain and
// when loading fails; Err tells the two apart.
func (it *Iterator) HasNext(ctx context.Context) bool {
	if it.pending != nil {
		return true
	}

	if it.done || it.err != nil || it.currentHash == util.ZeroHash {
		return false
	}

	block, err := it.chain.GetBlock(ctx, &it.currentHash)
	if err != nil {
		if !errors.Is(err, errors.ErrBlockNotFound) {
			it.err = err
		}

		it.done = true

		return false
	}

	it.pending = block

	return true
}

// Next returns the next block, tip first, after checking its proof of work and its place in
// the chain. A block that fails the checks ends the iteration with errors.ErrBlockInvalid.
func (it *Iterator) Next(ctx context.Context) (*model.Block, error) {
	if !it.HasNext(ctx) {
		if it.err != nil {
			return nil, it.err
		}

		return nil, errors.NewNotFoundError("iterator is past the genesis block")
	}

	block := it.pending
	it.pending = nil

	if err := it.validate(block); err != nil {
		it.err = err
		return nil, err
	}

	it.last = block
	it.currentHash = block.PrevBlockHash

	return block, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) validate(block *model.Block) error {
	if block.Hash != it.currentHash {
		return errors.NewBlockInvalidError("block stored under %s has hash %s", util.HashToHex(it.currentHash), block.HashHex())
	}

	if block.Bits != it.bits {
		return errors.NewBlockInvalidError("block %s has %d difficulty bits, chain uses %d", block.HashHex(), block.Bits, it.bits)
	}

	pow, err := model.NewProofOfWork(block)
	if err != nil {
		return errors.NewBlockInvalidError("block %s", block.HashHex(), err)
	}

	if !pow.Validate() {
		return errors.NewBlockInvalidError("block %s fails proof of work", block.HashHex())
	}

	if it.last != nil && block.Height+1 != it.last.Height {
		return errors.NewBlockInvalidError("block %s has height %d, expected %d", block.HashHex(), block.Height, it.last.Height-1)
	}

	if block.IsGenesis() != (block.Height == 0) {
		return errors.NewBlockInvalidError("block %s at height %d has previous hash %s", block.HashHex(), block.Height, util.HashToHex(block.PrevBlockHash))
	}

	return nil
}

// Blocks yields the chain tip first. Iteration stops after the first error is yielded.
func (b *Blockchain) Blocks(ctx context.Context) iter.Seq2[*model.Block, error] {
	return func(yield func(*model.Block, error) bool) {
		it := b.Iterator()

		for it.HasNext(ctx) {
			if err := ctx.Err(); err != nil {
				yield(nil, errors.NewContextCanceledError("chain iteration canceled", err))
				return
			}

			block, err := it.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(block, nil) {
				return
			}
		}

		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}
