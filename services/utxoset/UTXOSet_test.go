package utxoset

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/settings"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/stores/blockchain/factory"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeURLs(t *testing.T) map[string]string {
	t.Helper()

	return map[string]string{
		"memory":       "memory:///",
		"leveldb":      "leveldb://" + filepath.Join(t.TempDir(), "chain"),
		"sqlitememory": "sqlitememory:///utxoset",
	}
}

func newHandle(t *testing.T, rawURL string) *blockchain_store.Handle {
	t.Helper()

	storeURL, err := url.Parse(rawURL)
	require.NoError(t, err)

	tSettings := settings.NewTestSettings()
	tSettings.DataFolder = t.TempDir()

	store, err := factory.NewStore(ulogger.TestLogger{}, storeURL, tSettings)
	require.NoError(t, err)

	handle := blockchain_store.NewHandle(store)

	t.Cleanup(func() {
		_ = handle.Close(context.Background())
	})

	return handle
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()

	w, err := wallet.New()
	require.NoError(t, err)

	return w
}

type fixture struct {
	handle *blockchain_store.Handle
	utxos  *UTXOSet
	chain  *blockchain.Blockchain
	alice  *wallet.Wallet
}

// newFixture creates a chain whose genesis pays 10 to alice. With applier set the index is
// updated inside every block commit.
func newFixture(t *testing.T, rawURL string, applier bool) *fixture {
	t.Helper()

	f := &fixture{
		handle: newHandle(t, rawURL),
		alice:  newWallet(t),
	}

	errLogger := ulogger.NewErrorTestLogger(t)
	t.Cleanup(errLogger.Shutdown)

	f.utxos = New(errLogger, f.handle)

	var opts []blockchain.Option
	if applier {
		opts = append(opts, blockchain.WithBlockApplier(f.utxos))
	}

	chain, err := blockchain.New(context.Background(), ulogger.TestLogger{}, settings.NewTestSettings(), f.handle, f.alice.Address(), opts...)
	require.NoError(t, err)

	f.chain = chain

	return f
}

func (f *fixture) send(t *testing.T, from *wallet.Wallet, to *wallet.Wallet, amount int64) *model.Transaction {
	t.Helper()

	tx, err := f.chain.NewUTXOTransaction(context.Background(), from, to.Address(), amount, f.utxos)
	require.NoError(t, err)

	return tx
}

func (f *fixture) mine(t *testing.T, reward *wallet.Wallet, txs ...*model.Transaction) *model.Block {
	t.Helper()

	coinbase, err := model.NewCoinbaseTransaction(reward.Address(), "", settings.DefaultSubsidy)
	require.NoError(t, err)

	block, err := f.chain.MineBlock(context.Background(), append([]*model.Transaction{coinbase}, txs...))
	require.NoError(t, err)

	return block
}

func (f *fixture) balance(t *testing.T, w *wallet.Wallet) int64 {
	t.Helper()

	balance, err := f.utxos.GetBalance(context.Background(), w.Address())
	require.NoError(t, err)

	return balance
}

func snapshot(t *testing.T, handle *blockchain_store.Handle) map[chainhash.Hash][]byte {
	t.Helper()

	index := make(map[chainhash.Hash][]byte)

	require.NoError(t, handle.Store().IterateUTXOIndex(context.Background(), func(txID chainhash.Hash, outputs model.UnspentOutputs) bool {
		b, err := outputs.Bytes()
		require.NoError(t, err)

		index[txID] = b

		return true
	}))

	return index
}

func TestIncrementalMatchesReindex(t *testing.T) {
	for name, rawURL := range storeURLs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, rawURL, true)
			bob := newWallet(t)
			carol := newWallet(t)

			assert.Equal(t, int64(10), f.balance(t, f.alice))

			f.mine(t, carol, f.send(t, f.alice, bob, 4))

			assert.Equal(t, int64(6), f.balance(t, f.alice))
			assert.Equal(t, int64(4), f.balance(t, bob))
			assert.Equal(t, int64(10), f.balance(t, carol))

			// two spends by different owners in one block
			f.mine(t, carol, f.send(t, bob, f.alice, 1), f.send(t, f.alice, carol, 2))

			assert.Equal(t, int64(5), f.balance(t, f.alice))
			assert.Equal(t, int64(3), f.balance(t, bob))
			assert.Equal(t, int64(22), f.balance(t, carol))

			incremental := snapshot(t, f.handle)

			utxoTip, err := f.handle.Store().GetUTXOTipHash(ctx)
			require.NoError(t, err)
			assert.Equal(t, f.chain.TipHash(), *utxoTip)

			require.NoError(t, f.utxos.Reindex(ctx, f.chain))

			assert.Equal(t, incremental, snapshot(t, f.handle))

			count, err := f.utxos.CountTransactions(ctx)
			require.NoError(t, err)
			assert.Equal(t, len(incremental), count)
		})
	}
}

func TestSpentOutputIsNotSelectedAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory:///", true)
	bob := newWallet(t)

	_, before, err := f.utxos.FindSpendableOutputs(ctx, f.alice.PublicKeyHash(), 10)
	require.NoError(t, err)
	require.Len(t, before, 1)

	f.mine(t, bob, f.send(t, f.alice, bob, 4))

	total, after, err := f.utxos.FindSpendableOutputs(ctx, f.alice.PublicKeyHash(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)

	for txID := range before {
		assert.NotContains(t, after, txID)
	}
}

func TestDoubleSpendAcrossBlocksRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory:///", true)
	bob := newWallet(t)

	genesis, err := f.chain.GetBlock(ctx, ptr(f.chain.TipHash()))
	require.NoError(t, err)

	coinbase := genesis.Transactions[0]

	f.mine(t, bob, f.send(t, f.alice, bob, 4))

	tip := f.chain.TipHash()
	before := snapshot(t, f.handle)

	again, err := model.NewTransaction(
		[]*model.TXInput{{PrevTxID: coinbase.ID.CloneBytes(), OutputIndex: 0}},
		[]*model.TXOutput{model.NewTXOutput(10, f.alice.PublicKeyHash())},
	)
	require.NoError(t, err)
	require.NoError(t, f.chain.SignTransaction(ctx, again, f.alice.PrivateKey))

	_, err = f.chain.MineBlock(ctx, []*model.Transaction{again})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSpent))

	assert.Equal(t, tip, f.chain.TipHash())
	assert.Equal(t, before, snapshot(t, f.handle))

	storedTip, err := f.handle.Store().GetTipHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, tip, *storedTip)
}

func TestFaithfulMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory:///", false)
	bob := newWallet(t)

	// genesis was committed without touching the index
	_, err := f.handle.Store().GetUTXOTipHash(ctx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	rebuilt, err := f.utxos.Sync(ctx, f.chain)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, int64(10), f.balance(t, f.alice))

	block := f.mine(t, bob, f.send(t, f.alice, bob, 3))

	// the block is on the chain, the index lags behind
	assert.Equal(t, int64(10), f.balance(t, f.alice))

	require.NoError(t, f.utxos.Update(ctx, block))
	assert.Equal(t, int64(7), f.balance(t, f.alice))
	assert.Equal(t, int64(13), f.balance(t, bob))

	// applying the same block again is a no-op
	require.NoError(t, f.utxos.Update(ctx, block))
	assert.Equal(t, int64(7), f.balance(t, f.alice))

	rebuilt, err = f.utxos.Sync(ctx, f.chain)
	require.NoError(t, err)
	assert.False(t, rebuilt)
}

func TestSyncAfterMissedUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory:///", false)
	bob := newWallet(t)

	_, err := f.utxos.Sync(ctx, f.chain)
	require.NoError(t, err)

	f.mine(t, bob)

	rebuilt, err := f.utxos.Sync(ctx, f.chain)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, int64(10), f.balance(t, bob))
}

func TestFindSpendableOutputsOrder(t *testing.T) {
	ctx := context.Background()

	for name, rawURL := range storeURLs(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, rawURL, true)

			f.mine(t, f.alice)
			f.mine(t, f.alice)
			f.mine(t, f.alice)

			var owned []chainhash.Hash

			require.NoError(t, f.handle.Store().IterateUTXOIndex(ctx, func(txID chainhash.Hash, outputs model.UnspentOutputs) bool {
				for _, out := range outputs {
					if out.Output.IsLockedWithKey(f.alice.PublicKeyHash()) {
						owned = append(owned, txID)
						break
					}
				}

				return true
			}))
			require.Len(t, owned, 4)

			for i := 1; i < len(owned); i++ {
				assert.Negative(t, compareHashes(owned[i-1], owned[i]))
			}

			total, selected, err := f.utxos.FindSpendableOutputs(ctx, f.alice.PublicKeyHash(), 15)
			require.NoError(t, err)
			assert.Equal(t, int64(20), total)
			assert.Equal(t, map[chainhash.Hash][]uint32{owned[0]: {0}, owned[1]: {0}}, selected)

			total, selected, err = f.utxos.FindSpendableOutputs(ctx, f.alice.PublicKeyHash(), 1000)
			require.NoError(t, err)
			assert.Equal(t, int64(40), total)
			assert.Len(t, selected, 4)
		})
	}
}

func TestReindexCanceledLeavesIndexUntouched(t *testing.T) {
	f := newFixture(t, "memory:///", true)
	f.mine(t, newWallet(t))

	before := snapshot(t, f.handle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.utxos.Reindex(ctx, f.chain)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrContextCanceled))

	assert.Equal(t, before, snapshot(t, f.handle))
}

func TestApplyBlockUnknownOutput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory:///", true)

	tx, err := model.NewTransaction(
		[]*model.TXInput{{PrevTxID: make([]byte, 32), OutputIndex: 0}},
		[]*model.TXOutput{model.NewTXOutput(1, f.alice.PublicKeyHash())},
	)
	require.NoError(t, err)

	block, err := model.NewBlock(f.chain.TipHash(), []*model.Transaction{tx}, 8, 1)
	require.NoError(t, err)

	err = f.handle.UpdateIndex(ctx, func(txn blockchain_store.Txn) error {
		return f.utxos.ApplyBlock(txn, block)
	})
	assert.True(t, errors.Is(err, errors.ErrSpent))
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	f := newFixture(t, "memory:///", true)

	_, err := f.utxos.GetBalance(context.Background(), "1BogusAddress")
	assert.True(t, errors.Is(err, errors.ErrInvalidAddress))
}

func compareHashes(a, b chainhash.Hash) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}

	return 0
}

func ptr[T any](v T) *T {
	return &v
}
