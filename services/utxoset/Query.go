package utxoset

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/wallet"
	"github.com/ordishs/gocore"
)

// FindSpendableOutputs walks the index in ascending transaction ID order and selects outputs
// locked to pubKeyHash until their total reaches amount. The returned total may be short of
// amount when the owner cannot cover it; checking that is up to the caller.
func (u *UTXOSet) FindSpendableOutputs(ctx context.Context, pubKeyHash []byte, amount int64) (int64, map[chainhash.Hash][]uint32, error) {
	start := gocore.CurrentTime()
	defer stat.NewStat("FindSpendableOutputs").AddTime(start)

	var accumulated int64

	selected := make(map[chainhash.Hash][]uint32)

	err := u.handle.ReadIndex(func() error {
		return u.handle.Store().IterateUTXOIndex(ctx, func(txID chainhash.Hash, outputs model.UnspentOutputs) bool {
			for _, out := range outputs {
				if accumulated >= amount {
					return false
				}

				if out.Output.IsLockedWithKey(pubKeyHash) {
					accumulated += out.Output.Value
					selected[txID] = append(selected[txID], out.Index)
				}
			}

			return accumulated < amount
		})
	})
	if err != nil {
		return 0, nil, err
	}

	return accumulated, selected, nil
}

// FindUTXOs returns every unspent output locked to pubKeyHash.
func (u *UTXOSet) FindUTXOs(ctx context.Context, pubKeyHash []byte) ([]*model.TXOutput, error) {
	start := gocore.CurrentTime()
	defer stat.NewStat("FindUTXOs").AddTime(start)

	var utxos []*model.TXOutput

	err := u.handle.ReadIndex(func() error {
		return u.handle.Store().IterateUTXOIndex(ctx, func(_ chainhash.Hash, outputs model.UnspentOutputs) bool {
			for _, out := range outputs {
				if out.Output.IsLockedWithKey(pubKeyHash) {
					utxos = append(utxos, out.Output)
				}
			}

			return true
		})
	})
	if err != nil {
		return nil, err
	}

	return utxos, nil
}

// GetBalance sums the unspent outputs owned by address.
func (u *UTXOSet) GetBalance(ctx context.Context, address string) (int64, error) {
	pubKeyHash, err := wallet.AddressToPublicKeyHash(address)
	if err != nil {
		return 0, err
	}

	utxos, err := u.FindUTXOs(ctx, pubKeyHash)
	if err != nil {
		return 0, err
	}

	var balance int64
	for _, out := range utxos {
		balance += out.Value
	}

	return balance, nil
}

// CountTransactions returns the number of transactions with at least one unspent output.
func (u *UTXOSet) CountTransactions(ctx context.Context) (int, error) {
	count := 0

	err := u.handle.ReadIndex(func() error {
		return u.handle.Store().IterateUTXOIndex(ctx, func(chainhash.Hash, model.UnspentOutputs) bool {
			count++
			return true
		})
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

