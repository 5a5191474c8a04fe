package blockchain

import (
	"bytes"
	"context"
	"slices"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/wallet"
)

// SpendableFinder selects unspent outputs locked to a public-key hash until their total covers
// amount, returning the accumulated total and the selected output indexes per transaction.
type SpendableFinder interface {
	FindSpendableOutputs(ctx context.Context, pubKeyHash []byte, amount int64) (int64, map[chainhash.Hash][]uint32, error)
}

// NewUTXOTransaction builds and signs a transaction paying amount from the wallet to address
// to. Change goes back to the wallet. Inputs are ordered by transaction ID, then output index.
func (b *Blockchain) NewUTXOTransaction(ctx context.Context, from *wallet.Wallet, to string, amount int64, utxos SpendableFinder) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, errors.NewInvalidArgumentError("amount must be positive, got %d", amount)
	}

	if !wallet.ValidateAddress(to) {
		return nil, errors.NewInvalidAddressError("invalid recipient address %q", to)
	}

	pubKeyHash := from.PublicKeyHash()

	accumulated, spendable, err := utxos.FindSpendableOutputs(ctx, pubKeyHash, amount)
	if err != nil {
		return nil, err
	}

	if accumulated < amount {
		err := errors.New(errors.ERR_INSUFFICIENT_FUNDS, "address %s has %d, needs %d", from.Address(), accumulated, amount)
		err.SetData("available", accumulated)
		err.SetData("needed", amount)

		return nil, err
	}

	txIDs := make([]chainhash.Hash, 0, len(spendable))
	for txID := range spendable {
		txIDs = append(txIDs, txID)
	}

	slices.SortFunc(txIDs, func(a, b chainhash.Hash) int {
		return bytes.Compare(a[:], b[:])
	})

	var inputs []*model.TXInput

	for _, txID := range txIDs {
		indexes := slices.Clone(spendable[txID])
		slices.Sort(indexes)

		for _, idx := range indexes {
			inputs = append(inputs, &model.TXInput{
				PrevTxID:    bytes.Clone(txID[:]),
				OutputIndex: int32(idx), //nolint:gosec // output counts fit in int32
			})
		}
	}

	payment, err := model.NewTXOutputToAddress(amount, to)
	if err != nil {
		return nil, err
	}

	outputs := []*model.TXOutput{payment}

	if accumulated > amount {
		outputs = append(outputs, model.NewTXOutput(accumulated-amount, pubKeyHash))
	}

	tx, err := model.NewTransaction(inputs, outputs)
	if err != nil {
		return nil, err
	}

	if err = b.SignTransaction(ctx, tx, from.PrivateKey); err != nil {
		return nil, err
	}

	return tx, nil
}
