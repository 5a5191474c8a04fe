// Package blockchain appends blocks to the chain and reads it back.
//
// One writer at a time: mining, genesis creation and every UTXO index mutation run under the
// writer lock of the shared store handle.
package blockchain

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/services/miner/cpuminer"
	"github.com/bsv-blockchain/minichain/settings"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/bsv-blockchain/minichain/wallet"
	"github.com/jellydator/ttlcache/v3"
	"github.com/looplab/fsm"
)

// BlockApplier folds a block into the UTXO index inside the store transaction that persists it.
type BlockApplier interface {
	ApplyBlock(txn blockchain_store.Txn, block *model.Block) error
}

// MineFunc finds a nonce for block and stores it, together with the resulting hash.
type MineFunc func(ctx context.Context, block *model.Block) error

type Option func(*Blockchain)

// WithBlockApplier makes every commit update the UTXO index atomically with the block and tip.
func WithBlockApplier(applier BlockApplier) Option {
	return func(b *Blockchain) {
		b.applier = applier
	}
}

// WithMineFunc replaces the cpu miner.
func WithMineFunc(mine MineFunc) Option {
	return func(b *Blockchain) {
		b.mine = mine
	}
}

type Blockchain struct {
	logger             ulogger.Logger
	settings           *settings.Settings
	handle             *blockchain_store.Handle
	applier            BlockApplier
	mine               MineFunc
	finiteStateMachine *fsm.FSM
	blockCache         *ttlcache.Cache[chainhash.Hash, *model.Block]
	blockIndex         *util.SyncedSwissMap[chainhash.Hash, *blockIndexEntry]

	tipMu   sync.RWMutex
	tipHash chainhash.Hash
	height  uint32
	bits    uint32
}

// New opens the chain stored behind handle, creating and mining the genesis block with a
// coinbase to genesisAddress when the store holds no chain yet. An existing chain is loaded
// as is and genesisAddress is ignored.
func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, handle *blockchain_store.Handle, genesisAddress string, opts ...Option) (*Blockchain, error) {
	b := newBlockchain(logger, tSettings, handle, opts...)

	err := handle.Exclusive(func() error {
		tip, err := handle.Store().GetTipHash(ctx)
		if err == nil {
			return b.loadTip(ctx, tip)
		}

		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		return b.createGenesis(ctx, genesisAddress)
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Open loads an existing chain. It returns errors.ErrChainNotInitialized when the store has no tip.
func Open(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, handle *blockchain_store.Handle, opts ...Option) (*Blockchain, error) {
	b := newBlockchain(logger, tSettings, handle, opts...)

	tip, err := handle.Store().GetTipHash(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewChainNotInitializedError("no existing blockchain found, create one first")
		}

		return nil, err
	}

	if err = b.loadTip(ctx, tip); err != nil {
		return nil, err
	}

	return b, nil
}

func newBlockchain(logger ulogger.Logger, tSettings *settings.Settings, handle *blockchain_store.Handle, opts ...Option) *Blockchain {
	initPrometheusMetrics()

	cacheCapacity := tSettings.Blockchain.BlockCacheSize
	if cacheCapacity <= 0 {
		cacheCapacity = 1
	}

	b := &Blockchain{
		logger:   logger,
		settings: tSettings,
		handle:   handle,
		mine:     cpuminer.MineBlock,
		blockCache: ttlcache.New[chainhash.Hash, *model.Block](
			ttlcache.WithTTL[chainhash.Hash, *model.Block](tSettings.Blockchain.BlockCacheTTL),
			ttlcache.WithCapacity[chainhash.Hash, *model.Block](uint64(cacheCapacity)),
		),
		blockIndex: util.NewSyncedSwissMap[chainhash.Hash, *blockIndexEntry](1024),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.finiteStateMachine = b.NewFiniteStateMachine()

	return b
}

func (b *Blockchain) loadTip(ctx context.Context, tip *chainhash.Hash) error {
	block, err := b.GetBlock(ctx, tip)
	if err != nil {
		return err
	}

	if block.Bits != b.settings.Blockchain.DifficultyBits {
		b.logger.Warnf("[Blockchain] chain was created with %d difficulty bits, ignoring configured %d", block.Bits, b.settings.Blockchain.DifficultyBits)
	}

	b.setTip(block)

	b.logger.Infof("[Blockchain] loaded chain at height %d, tip %s", block.Height, block.HashHex())

	return nil
}

func (b *Blockchain) createGenesis(ctx context.Context, address string) error {
	if !wallet.ValidateAddress(address) {
		return errors.NewInvalidAddressError("invalid genesis address %q", address)
	}

	coinbase, err := model.NewCoinbaseTransaction(address, b.settings.Coinbase.ArbitraryText, b.settings.Coinbase.Subsidy)
	if err != nil {
		return err
	}

	genesis, err := model.NewGenesisBlock(coinbase, b.settings.Blockchain.DifficultyBits)
	if err != nil {
		return err
	}

	if err = b.mineAndCommit(ctx, genesis); err != nil {
		return err
	}

	b.logger.Infof("[Blockchain] created genesis block %s paying %d to %s", genesis.HashHex(), b.settings.Coinbase.Subsidy, address)

	return nil
}

func (b *Blockchain) setTip(block *model.Block) {
	b.tipMu.Lock()
	defer b.tipMu.Unlock()

	b.tipHash = block.Hash
	b.height = block.Height
	b.bits = block.Bits

	prometheusChainHeight.Set(float64(block.Height))
}

// TipHash returns the hash of the last block in the chain.
func (b *Blockchain) TipHash() chainhash.Hash {
	b.tipMu.RLock()
	defer b.tipMu.RUnlock()

	return b.tipHash
}

// Height returns the height of the tip; the genesis block is at height 0.
func (b *Blockchain) Height() uint32 {
	b.tipMu.RLock()
	defer b.tipMu.RUnlock()

	return b.height
}

// DifficultyBits returns the difficulty the chain was created with. Every block of a chain
// uses the same value.
func (b *Blockchain) DifficultyBits() uint32 {
	b.tipMu.RLock()
	defer b.tipMu.RUnlock()

	return b.bits
}

func (b *Blockchain) Handle() *blockchain_store.Handle {
	return b.handle
}

// Stop waits for an in flight block to finish and refuses further mining.
func (b *Blockchain) Stop(ctx context.Context) error {
	return b.handle.Exclusive(func() error {
		b.blockCache.DeleteAll()

		if b.State() == FSMStateStopped {
			return nil
		}

		return b.sendFSMEvent(ctx, FSMEventStop)
	})
}

// GetBlock returns a block by hash, checking the block cache first. The proof of work of
// blocks read from the store is not checked here; the iterator does that.
func (b *Blockchain) GetBlock(ctx context.Context, hash *chainhash.Hash) (*model.Block, error) {
	if item := b.blockCache.Get(*hash); item != nil {
		prometheusBlockCacheHits.Inc()
		return item.Value(), nil
	}

	block, err := b.handle.Store().GetBlock(ctx, hash)
	if err != nil {
		return nil, err
	}

	b.cacheBlock(block)

	return block, nil
}

func (b *Blockchain) cacheBlock(block *model.Block) {
	b.blockCache.Set(block.Hash, block, ttlcache.DefaultTTL)
	b.indexBlock(block)
}
