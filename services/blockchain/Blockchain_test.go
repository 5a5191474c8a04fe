package blockchain

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/settings"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/stores/blockchain/factory"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/bsv-blockchain/minichain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedOutputs struct {
	total   int64
	outputs map[chainhash.Hash][]uint32
}

func (f fixedOutputs) FindSpendableOutputs(context.Context, []byte, int64) (int64, map[chainhash.Hash][]uint32, error) {
	return f.total, f.outputs, nil
}

func newTestHandle(t *testing.T) *blockchain_store.Handle {
	t.Helper()

	storeURL, err := url.Parse("memory:///")
	require.NoError(t, err)

	store, err := factory.NewStore(ulogger.TestLogger{}, storeURL, settings.NewTestSettings())
	require.NoError(t, err)

	handle := blockchain_store.NewHandle(store)

	t.Cleanup(func() {
		_ = handle.Close(context.Background())
	})

	return handle
}

func newTestChain(t *testing.T, subsidy int64) (*Blockchain, *wallet.Wallet) {
	t.Helper()

	tSettings := settings.NewTestSettings()
	tSettings.Coinbase.Subsidy = subsidy

	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := New(context.Background(), ulogger.TestLogger{}, tSettings, newTestHandle(t), w.Address())
	require.NoError(t, err)

	return chain, w
}

func genesisCoinbase(t *testing.T, chain *Blockchain) *model.Transaction {
	t.Helper()

	genesis, err := chain.GetBlock(context.Background(), ptr(chain.TipHash()))
	require.NoError(t, err)
	require.True(t, genesis.IsGenesis())

	return genesis.Transactions[0]
}

func mineCoinbaseBlock(t *testing.T, chain *Blockchain, to string, extra ...*model.Transaction) *model.Block {
	t.Helper()

	coinbase, err := model.NewCoinbaseTransaction(to, "", settings.DefaultSubsidy)
	require.NoError(t, err)

	block, err := chain.MineBlock(context.Background(), append([]*model.Transaction{coinbase}, extra...))
	require.NoError(t, err)

	return block
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewCreatesGenesis(t *testing.T) {
	chain, w := newTestChain(t, 10)

	assert.Equal(t, uint32(0), chain.Height())
	assert.Equal(t, uint32(8), chain.DifficultyBits())
	assert.Equal(t, FSMStateIdle, chain.State())

	coinbase := genesisCoinbase(t, chain)
	assert.True(t, coinbase.IsCoinbase())
	require.Len(t, coinbase.Outputs, 1)
	assert.Equal(t, int64(10), coinbase.Outputs[0].Value)
	assert.True(t, coinbase.Outputs[0].IsLockedWithKey(w.PublicKeyHash()))
}

func TestNewInvalidGenesisAddress(t *testing.T) {
	_, err := New(context.Background(), ulogger.TestLogger{}, settings.NewTestSettings(), newTestHandle(t), "not-an-address")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidAddress))
}

func TestNewLoadsExistingChain(t *testing.T) {
	ctx := context.Background()
	chain, w := newTestChain(t, 10)

	block := mineCoinbaseBlock(t, chain, w.Address())

	other, err := wallet.New()
	require.NoError(t, err)

	reopened, err := New(ctx, ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle(), other.Address())
	require.NoError(t, err)

	assert.Equal(t, block.Hash, reopened.TipHash())
	assert.Equal(t, uint32(1), reopened.Height())

	opened, err := Open(ctx, ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle())
	require.NoError(t, err)
	assert.Equal(t, block.Hash, opened.TipHash())
}

func TestOpenEmptyStore(t *testing.T) {
	_, err := Open(context.Background(), ulogger.TestLogger{}, settings.NewTestSettings(), newTestHandle(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrChainNotInitialized))
}

func TestLoadedChainKeepsGenesisDifficulty(t *testing.T) {
	chain, _ := newTestChain(t, 10)

	tSettings := settings.NewTestSettings()
	tSettings.Blockchain.DifficultyBits = 12

	opened, err := Open(context.Background(), ulogger.TestLogger{}, tSettings, chain.Handle())
	require.NoError(t, err)
	assert.Equal(t, uint32(8), opened.DifficultyBits())
}

func TestSendAndMine(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	bob, err := wallet.New()
	require.NoError(t, err)

	coinbase := genesisCoinbase(t, chain)
	finder := fixedOutputs{total: 5, outputs: map[chainhash.Hash][]uint32{coinbase.ID: {0}}}

	tx, err := chain.NewUTXOTransaction(ctx, alice, bob.Address(), 2, finder)
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, int64(2), tx.Outputs[0].Value)
	assert.True(t, tx.Outputs[0].IsLockedWithKey(bob.PublicKeyHash()))
	assert.Equal(t, int64(3), tx.Outputs[1].Value)
	assert.True(t, tx.Outputs[1].IsLockedWithKey(alice.PublicKeyHash()))

	ok, err := chain.VerifyTransaction(ctx, tx)
	require.NoError(t, err)
	assert.True(t, ok)

	block := mineCoinbaseBlock(t, chain, alice.Address(), tx)

	assert.Equal(t, uint32(1), block.Height)
	assert.Equal(t, block.Hash, chain.TipHash())

	found, err := chain.FindTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)
}

func TestSendExactAmountHasNoChange(t *testing.T) {
	chain, alice := newTestChain(t, 5)

	bob, err := wallet.New()
	require.NoError(t, err)

	finder := fixedOutputs{total: 5, outputs: map[chainhash.Hash][]uint32{genesisCoinbase(t, chain).ID: {0}}}

	tx, err := chain.NewUTXOTransaction(context.Background(), alice, bob.Address(), 5, finder)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, int64(5), tx.Outputs[0].Value)
}

func TestSendErrors(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	bob, err := wallet.New()
	require.NoError(t, err)

	finder := fixedOutputs{total: 5, outputs: map[chainhash.Hash][]uint32{genesisCoinbase(t, chain).ID: {0}}}

	_, err = chain.NewUTXOTransaction(ctx, alice, bob.Address(), 6, finder)
	assert.True(t, errors.Is(err, errors.ErrInsufficientFunds))

	var fundsErr *errors.Error
	require.True(t, errors.As(err, &fundsErr))
	assert.Equal(t, int64(5), fundsErr.GetData("available"))
	assert.Equal(t, int64(6), fundsErr.GetData("needed"))

	_, err = chain.NewUTXOTransaction(ctx, alice, bob.Address(), 0, finder)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	_, err = chain.NewUTXOTransaction(ctx, alice, "bogus", 1, finder)
	assert.True(t, errors.Is(err, errors.ErrInvalidAddress))
}

func TestMineBlockRejectsInvalidSignature(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	bob, err := wallet.New()
	require.NoError(t, err)

	finder := fixedOutputs{total: 5, outputs: map[chainhash.Hash][]uint32{genesisCoinbase(t, chain).ID: {0}}}

	tx, err := chain.NewUTXOTransaction(ctx, alice, bob.Address(), 2, finder)
	require.NoError(t, err)

	// bob signs alice's output
	require.NoError(t, chain.SignTransaction(ctx, tx, bob.PrivateKey))

	tip := chain.TipHash()

	coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	_, err = chain.MineBlock(ctx, []*model.Transaction{coinbase, tx})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))
	assert.Equal(t, tip, chain.TipHash())
	assert.Equal(t, FSMStateIdle, chain.State())
}

// requireUnchanged checks that a rejected block left no trace: the tip did not move and the
// stored chain still loads from scratch.
func requireUnchanged(t *testing.T, chain *Blockchain, tip chainhash.Hash) {
	t.Helper()

	assert.Equal(t, tip, chain.TipHash())
	assert.Equal(t, FSMStateIdle, chain.State())

	reopened, err := Open(context.Background(), ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle())
	require.NoError(t, err)
	assert.Equal(t, tip, reopened.TipHash())
}

func TestMineBlockRejectsStaleTransactionID(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	bob, err := wallet.New()
	require.NoError(t, err)

	finder := fixedOutputs{total: 5, outputs: map[chainhash.Hash][]uint32{genesisCoinbase(t, chain).ID: {0}}}

	tx, err := chain.NewUTXOTransaction(ctx, alice, bob.Address(), 2, finder)
	require.NoError(t, err)

	// the signature does not cover the ID, so the spend still verifies
	tx.ID[0] ^= 0xff

	ok, err := chain.VerifyTransaction(ctx, tx)
	require.NoError(t, err)
	require.True(t, ok)

	tip := chain.TipHash()

	coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	_, err = chain.MineBlock(ctx, []*model.Transaction{coinbase, tx})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))

	requireUnchanged(t, chain, tip)

	t.Run("stale coinbase id", func(t *testing.T) {
		coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "", 10)
		require.NoError(t, err)

		coinbase.Outputs[0].Value = 1_000_000

		_, err = chain.MineBlock(ctx, []*model.Transaction{coinbase})
		assert.True(t, errors.Is(err, errors.ErrTxInvalid))

		requireUnchanged(t, chain, tip)
	})
}

func TestMineBlockRejectsMislabelledCoinbase(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	prev := genesisCoinbase(t, chain)

	// a real spend tagged as coinbase would skip signature verification
	tx, err := model.NewTransaction(
		[]*model.TXInput{{PrevTxID: prev.ID.CloneBytes(), OutputIndex: 0}},
		[]*model.TXOutput{model.NewTXOutput(1_000_000, alice.PublicKeyHash())},
	)
	require.NoError(t, err)

	tx.Kind = model.TxCoinbase
	require.NoError(t, tx.SetID())

	tip := chain.TipHash()

	_, err = chain.MineBlock(ctx, []*model.Transaction{tx})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))

	requireUnchanged(t, chain, tip)
}

func TestMineBlockRejectsUnknownInput(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	tx, err := model.NewTransaction(
		[]*model.TXInput{{PrevTxID: make([]byte, 32), OutputIndex: 0}},
		[]*model.TXOutput{model.NewTXOutput(1, alice.PublicKeyHash())},
	)
	require.NoError(t, err)

	err = chain.SignTransaction(ctx, tx, alice.PrivateKey)
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))

	_, err = chain.MineBlock(ctx, []*model.Transaction{tx})
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))
}

func TestMineBlockStructure(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	prev := genesisCoinbase(t, chain)

	spend := func(value int64) *model.Transaction {
		tx, err := model.NewTransaction(
			[]*model.TXInput{{PrevTxID: prev.ID.CloneBytes(), OutputIndex: 0}},
			[]*model.TXOutput{model.NewTXOutput(value, alice.PublicKeyHash())},
		)
		require.NoError(t, err)
		require.NoError(t, chain.SignTransaction(ctx, tx, alice.PrivateKey))

		return tx
	}

	coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "late", 10)
	require.NoError(t, err)

	t.Run("empty block", func(t *testing.T) {
		_, err := chain.MineBlock(ctx, nil)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("coinbase not first", func(t *testing.T) {
		_, err := chain.MineBlock(ctx, []*model.Transaction{spend(5), coinbase})
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("double spend within block", func(t *testing.T) {
		_, err := chain.MineBlock(ctx, []*model.Transaction{spend(5), spend(4)})
		assert.True(t, errors.Is(err, errors.ErrTxInvalidDoubleSpend))
	})

	t.Run("duplicate transaction", func(t *testing.T) {
		tx := spend(3)
		_, err := chain.MineBlock(ctx, []*model.Transaction{tx, tx})
		assert.True(t, errors.Is(err, errors.ErrTxInvalid))
	})

	assert.Equal(t, uint32(0), chain.Height())
}

func TestMineBlockCanceled(t *testing.T) {
	chain, alice := newTestChain(t, 5)
	tip := chain.TipHash()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain.mine = func(ctx context.Context, _ *model.Block) error {
		cancel()
		<-ctx.Done()

		return errors.NewContextCanceledError("mining canceled", ctx.Err())
	}

	coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	_, err = chain.MineBlock(ctx, []*model.Transaction{coinbase})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrContextCanceled))

	assert.Equal(t, tip, chain.TipHash())
	assert.Equal(t, FSMStateIdle, chain.State())

	storedTip, err := chain.Handle().Store().GetTipHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tip, *storedTip)
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	require.NoError(t, chain.Stop(ctx))
	assert.Equal(t, FSMStateStopped, chain.State())

	// stopping twice is fine
	require.NoError(t, chain.Stop(ctx))

	coinbase, err := model.NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	_, err = chain.MineBlock(ctx, []*model.Transaction{coinbase})
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
}

func TestFiniteStateMachine(t *testing.T) {
	ctx := context.Background()
	chain, _ := newTestChain(t, 5)

	fsm := chain.NewFiniteStateMachine()
	assert.Equal(t, FSMStateIdle.String(), fsm.Current())
	assert.True(t, fsm.Can(FSMEventMine.String()))
	assert.False(t, fsm.Can(FSMEventMined.String()))

	require.NoError(t, fsm.Event(ctx, FSMEventMine.String()))
	assert.Equal(t, FSMStateMining.String(), fsm.Current())

	require.NoError(t, fsm.Event(ctx, FSMEventMined.String()))
	require.NoError(t, fsm.Event(ctx, FSMEventStop.String()))
	assert.Equal(t, FSMStateStopped.String(), fsm.Current())

	require.Error(t, fsm.Event(ctx, FSMEventMine.String()))
}

func TestIterator(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	mined := []*model.Block{
		mineCoinbaseBlock(t, chain, alice.Address()),
		mineCoinbaseBlock(t, chain, alice.Address()),
		mineCoinbaseBlock(t, chain, alice.Address()),
	}

	// a fresh chain object reads everything from the store
	opened, err := Open(ctx, ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle())
	require.NoError(t, err)

	it := opened.Iterator()

	var heights []uint32

	for it.HasNext(ctx) {
		block, err := it.Next(ctx)
		require.NoError(t, err)

		heights = append(heights, block.Height)
	}

	require.NoError(t, it.Err())
	assert.Equal(t, []uint32{3, 2, 1, 0}, heights)
	assert.False(t, it.HasNext(ctx))

	var hashes []chainhash.Hash

	for block, err := range chain.Blocks(ctx) {
		require.NoError(t, err)

		hashes = append(hashes, block.Hash)
	}

	require.Len(t, hashes, 4)
	assert.Equal(t, mined[2].Hash, hashes[0])
	assert.Equal(t, mined[0].Hash, hashes[2])

	genesis, err := chain.GetBlock(ctx, &hashes[3])
	require.NoError(t, err)
	assert.Equal(t, util.ZeroHash, genesis.PrevBlockHash)
}

func TestIteratorDetectsTamperedBlock(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	block := mineCoinbaseBlock(t, chain, alice.Address())

	tampered := *block
	tampered.Nonce++

	require.NoError(t, chain.Handle().Store().Update(ctx, func(txn blockchain_store.Txn) error {
		return txn.PutBlock(&tampered)
	}))

	opened, err := Open(ctx, ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle())
	require.NoError(t, err)

	it := opened.Iterator()
	require.True(t, it.HasNext(ctx))

	_, err = it.Next(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	assert.False(t, it.HasNext(ctx))

	var iterErr error

	for _, err := range opened.Blocks(ctx) {
		iterErr = err
	}

	assert.True(t, errors.Is(iterErr, errors.ErrBlockInvalid))
}

func TestFindTransaction(t *testing.T) {
	ctx := context.Background()
	chain, alice := newTestChain(t, 5)

	coinbase := genesisCoinbase(t, chain)

	mineCoinbaseBlock(t, chain, alice.Address())
	mineCoinbaseBlock(t, chain, alice.Address())

	found, err := chain.FindTransaction(ctx, coinbase.ID)
	require.NoError(t, err)
	assert.Equal(t, coinbase.ID, found.ID)

	_, err = chain.FindTransaction(ctx, chainhash.Hash{0xde, 0xad})
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))

	opened, err := Open(ctx, ulogger.TestLogger{}, settings.NewTestSettings(), chain.Handle())
	require.NoError(t, err)

	found, err = opened.FindTransaction(ctx, coinbase.ID)
	require.NoError(t, err)
	assert.Equal(t, coinbase.ID, found.ID)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = chain.FindTransaction(canceled, coinbase.ID)
	assert.True(t, errors.Is(err, errors.ErrContextCanceled))
}
