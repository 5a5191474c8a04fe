package model

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/wallet"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()

	w, err := wallet.New()
	require.NoError(t, err)

	return w
}

// mineTestBlock is a plain nonce search for tests in this package.
func mineTestBlock(t *testing.T, block *Block) {
	t.Helper()

	pow, err := NewProofOfWork(block)
	require.NoError(t, err)

	for nonce := uint64(0); ; nonce++ {
		hash := pow.HashWithNonce(nonce)
		if pow.MeetsTarget(hash) {
			block.Nonce = nonce
			block.Hash = hash

			return
		}
	}
}

// spendTx builds and signs a transaction spending output idx of prev, owned by from.
func spendTx(t *testing.T, from *wallet.Wallet, prev *Transaction, idx int32, outputs ...*TXOutput) *Transaction {
	t.Helper()

	tx, err := NewTransaction([]*TXInput{{PrevTxID: prev.ID[:], OutputIndex: idx}}, outputs)
	require.NoError(t, err)

	require.NoError(t, tx.Sign(from.PrivateKey, map[chainhash.Hash]*Transaction{prev.ID: prev}))

	return tx
}
