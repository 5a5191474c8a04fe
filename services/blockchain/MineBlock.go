package blockchain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/tracing"
	"github.com/bsv-blockchain/minichain/util"
	"golang.org/x/sync/errgroup"
)

// MineBlock verifies transactions, mines a block holding them on top of the current tip and
// commits block and tip in one store transaction. With a BlockApplier the UTXO index is updated
// in that same transaction; otherwise the caller must run the UTXO set update afterwards.
//
// Nothing is written when verification fails, when ctx is canceled during mining, or when the
// commit fails.
func (b *Blockchain) MineBlock(ctx context.Context, transactions []*model.Transaction) (*model.Block, error) {
	ctx, _, deferFn := tracing.StartTracing(ctx, "Blockchain:MineBlock",
		tracing.WithHistogram(prometheusMineBlockDuration),
		tracing.WithTag("transactions", strconv.Itoa(len(transactions))),
	)
	defer deferFn()

	var block *model.Block

	err := b.handle.Exclusive(func() error {
		if state := b.State(); state != FSMStateIdle {
			return errors.NewServiceUnavailableError("cannot mine, chain is %s", state)
		}

		if err := b.validateBlockTransactions(ctx, transactions); err != nil {
			prometheusInvalidTransactions.Inc()
			return err
		}

		newBlock, err := model.NewBlock(b.TipHash(), transactions, b.DifficultyBits(), b.Height()+1)
		if err != nil {
			return err
		}

		if err = b.mineAndCommit(ctx, newBlock); err != nil {
			return err
		}

		block = newBlock

		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	prometheusBlocksMined.Inc()

	b.logger.Infof("[Blockchain] mined block %d %s with %d transactions", block.Height, block.HashHex(), len(block.Transactions))

	return block, nil
}

// mineAndCommit must be called inside the writer lock.
func (b *Blockchain) mineAndCommit(ctx context.Context, block *model.Block) error {
	if err := b.sendFSMEvent(ctx, FSMEventMine); err != nil {
		return errors.NewServiceError("failed to enter mining state", err)
	}

	defer func() {
		if err := b.sendFSMEvent(context.WithoutCancel(ctx), FSMEventMined); err != nil {
			b.logger.Errorf("[Blockchain] failed to leave mining state: %v", err)
		}
	}()

	if err := b.mine(ctx, block); err != nil {
		return err
	}

	commit := func(txn blockchain_store.Txn) error {
		if err := txn.PutBlock(block); err != nil {
			return err
		}

		if b.applier != nil {
			if err := b.applier.ApplyBlock(txn, block); err != nil {
				return err
			}
		}

		return txn.PutTipHash(&block.Hash)
	}

	var err error
	if b.applier != nil {
		err = b.handle.UpdateIndex(ctx, commit)
	} else {
		err = b.handle.Store().Update(ctx, commit)
	}

	if err != nil {
		return err
	}

	b.setTip(block)
	b.cacheBlock(block)

	return nil
}

// validateBlockTransactions rejects transactions whose ID or coinbase shape does not match their
// contents, misplaced coinbases and outputs spent twice within the block, then verifies the signatures of all standard transactions concurrently.
func (b *Blockchain) validateBlockTransactions(ctx context.Context, transactions []*model.Transaction) error {
	if len(transactions) == 0 {
		return errors.NewBlockInvalidError("block must contain at least one transaction")
	}

	type outpoint struct {
		txID  string
		index int32
	}

	spent := make(map[outpoint]struct{})
	seen := make(map[string]struct{}, len(transactions))

	for i, tx := range transactions {
		if err := tx.CheckSanity(); err != nil {
			return err
		}

		if _, ok := seen[string(tx.ID[:])]; ok {
			return errors.NewTxInvalidError("transaction %s appears twice in block", util.HashToHex(tx.ID))
		}

		seen[string(tx.ID[:])] = struct{}{}

		if tx.IsCoinbase() {
			if i != 0 {
				return errors.NewBlockInvalidError("coinbase transaction %s must be the first transaction", util.HashToHex(tx.ID))
			}

			continue
		}

		for _, in := range tx.Inputs {
			op := outpoint{txID: string(in.PrevTxID), index: in.OutputIndex}
			if _, ok := spent[op]; ok {
				return errors.NewTxInvalidDoubleSpendError("output %x:%d is spent twice in block", in.PrevTxID, in.OutputIndex)
			}

			spent[op] = struct{}{}
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if limit := b.settings.Blockchain.VerifyConcurrency; limit > 0 {
		g.SetLimit(limit)
	}

	for _, tx := range transactions {
		if tx.IsCoinbase() {
			continue
		}

		g.Go(func() error {
			ok, err := b.VerifyTransaction(gCtx, tx)
			if err != nil {
				if errors.Is(err, errors.ErrTxInvalid) {
					return err
				}

				return errors.NewTxInvalidError("failed to verify transaction %s", util.HashToHex(tx.ID), err)
			}

			if !ok {
				return errors.NewTxInvalidError("transaction %s failed signature verification", util.HashToHex(tx.ID))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return nil
}

// String summarises the chain tip.
func (b *Blockchain) String() string {
	return fmt.Sprintf("Blockchain{height: %d, tip: %s, bits: %d, state: %s}", b.Height(), util.HashToHex(b.TipHash()), b.DifficultyBits(), b.State())
}
