// Package leveldb is the persistent key-value store backend.
//
// Store URLs: leveldb://./data/blockchain opens a path relative to the working directory,
// leveldb:///var/lib/minichain an absolute one. Add ?sync=true to fsync every commit.
package leveldb

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	lvlutil "github.com/btcsuite/goleveldb/leveldb/util"
)

type LevelDB struct {
	logger       ulogger.Logger
	db           *leveldb.DB
	path         string
	writeOptions *opt.WriteOptions
}

func New(logger ulogger.Logger, storeURL *url.URL) (*LevelDB, error) {
	var path string
	if storeURL.Host == "." {
		path = storeURL.Path[1:] // relative path
	} else {
		path = storeURL.Path // absolute path
	}

	if path == "" {
		return nil, errors.NewConfigurationError("leveldb store url %s has no path", storeURL.String())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewStorageUnavailableError("failed to create leveldb parent folder for %s", path, err)
	}

	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open leveldb at %s", path, err)
	}

	logger.Infof("Using leveldb store at %s", path)

	return &LevelDB{
		logger:       logger,
		db:           db,
		path:         path,
		writeOptions: &opt.WriteOptions{Sync: storeURL.Query().Get("sync") == "true"},
	}, nil
}

func (l *LevelDB) Health(_ context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "LevelDB Store", nil
	}

	if _, err := l.db.GetProperty("leveldb.stats"); err != nil {
		return http.StatusServiceUnavailable, "LevelDB Store: " + l.path, errors.NewStorageUnavailableError("leveldb unavailable", err)
	}

	return http.StatusOK, "LevelDB Store", nil
}

// Get implements blockchain.KVReader.
func (l *LevelDB) Get(key []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}

		return nil, false, errors.NewStorageUnavailableError("leveldb get failed", err)
	}

	return v, true, nil
}

func (l *LevelDB) GetTipHash(_ context.Context) (*chainhash.Hash, error) {
	v, ok, err := l.Get(blockchain.TipKey)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeHash(blockchain.TipKey, v, ok)
}

func (l *LevelDB) GetUTXOTipHash(_ context.Context) (*chainhash.Hash, error) {
	v, ok, err := l.Get(blockchain.UTXOTipKey)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeHash(blockchain.UTXOTipKey, v, ok)
}

func (l *LevelDB) GetBlock(_ context.Context, hash *chainhash.Hash) (*model.Block, error) {
	v, ok, err := l.Get(blockchain.BlockKey(hash))
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeBlock(hash, v, ok)
}

func (l *LevelDB) GetUTXOEntry(_ context.Context, txID *chainhash.Hash) (model.UnspentOutputs, error) {
	v, ok, err := l.Get(blockchain.UTXOKey(txID))
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeUTXOEntry(txID, v, ok)
}

// IterateUTXOIndex walks the c prefix. leveldb orders keys bytewise, which is ascending tx ID.
func (l *LevelDB) IterateUTXOIndex(ctx context.Context, fn blockchain.UTXOVisitor) error {
	iter := l.db.NewIterator(lvlutil.BytesPrefix(blockchain.UTXOPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return errors.NewContextCanceledError("utxo index iteration canceled", err)
		}

		txID, ok := blockchain.TxIDFromUTXOKey(iter.Key())
		if !ok {
			return errors.NewStorageError("corrupt utxo key %x", iter.Key())
		}

		outputs, err := model.NewUnspentOutputsFromBytes(iter.Value())
		if err != nil {
			return errors.NewStorageError("failed to decode utxo entry %s", util.HashToHex(txID), err)
		}

		if !fn(txID, outputs) {
			return nil
		}
	}

	if err := iter.Error(); err != nil {
		return errors.NewStorageUnavailableError("leveldb iteration failed", err)
	}

	return nil
}

// Update collects the writes of fn and commits them as one leveldb batch, which is applied
// atomically.
func (l *LevelDB) Update(ctx context.Context, fn func(txn blockchain.Txn) error) error {
	txn := blockchain.NewKVTxn(l)

	if err := fn(txn); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("leveldb update canceled", err)
	}

	batch := new(leveldb.Batch)

	if txn.Cleared {
		iter := l.db.NewIterator(lvlutil.BytesPrefix(blockchain.UTXOPrefix), nil)

		for iter.Next() {
			// the batch keeps its own copy of the key
			batch.Delete(iter.Key())
		}

		iter.Release()

		if err := iter.Error(); err != nil {
			return errors.NewStorageUnavailableError("failed to scan utxo index", err)
		}
	}

	for k := range txn.Deletes {
		batch.Delete([]byte(k))
	}

	for k, v := range txn.Writes {
		batch.Put([]byte(k), v)
	}

	if err := l.db.Write(batch, l.writeOptions); err != nil {
		return errors.NewStorageUnavailableError("failed to commit leveldb batch", err)
	}

	return nil
}

func (l *LevelDB) Close(_ context.Context) error {
	if err := l.db.Close(); err != nil {
		return errors.NewStorageError("failed to close leveldb", err)
	}

	return nil
}
