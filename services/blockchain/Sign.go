package blockchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/util"
)

// SignTransaction looks up every transaction tx spends from and signs all inputs with privKey.
func (b *Blockchain) SignTransaction(ctx context.Context, tx *model.Transaction, privKey *bec.PrivateKey) error {
	if tx.IsCoinbase() {
		return nil
	}

	prevTXs, err := b.referencedTransactions(ctx, tx)
	if err != nil {
		return err
	}

	return tx.Sign(privKey, prevTXs)
}

// VerifyTransaction reports whether every input of tx carries a valid signature by the owner of
// the output it spends. Spending an output of a transaction that is not in the chain is an
// errors.ErrTxInvalid error.
func (b *Blockchain) VerifyTransaction(ctx context.Context, tx *model.Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	prevTXs, err := b.referencedTransactions(ctx, tx)
	if err != nil {
		return false, err
	}

	return tx.Verify(prevTXs)
}

func (b *Blockchain) referencedTransactions(ctx context.Context, tx *model.Transaction) (map[chainhash.Hash]*model.Transaction, error) {
	prevTXs := make(map[chainhash.Hash]*model.Transaction, len(tx.Inputs))

	for _, in := range tx.Inputs {
		prevHash := in.PrevTxHash()
		if prevHash == nil {
			return nil, errors.NewTxInvalidError("input references malformed transaction id %x", in.PrevTxID)
		}

		if _, ok := prevTXs[*prevHash]; ok {
			continue
		}

		prevTx, err := b.FindTransaction(ctx, *prevHash)
		if err != nil {
			if errors.Is(err, errors.ErrTxNotFound) {
				return nil, errors.NewTxInvalidError("transaction %s spends from unknown transaction %s", util.HashToHex(tx.ID), util.HashToHex(*prevHash), err)
			}

			return nil, err
		}

		prevTXs[*prevHash] = prevTx
	}

	return prevTXs, nil
}
