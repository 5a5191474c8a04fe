package blockchain

import (
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/util"
)

// KVReader reads committed values from a key-value backend.
type KVReader interface {
	Get(key []byte) (value []byte, found bool, err error)
}

// KVTxn is a Txn for key-value backends. It stages writes in memory on top of the committed
// state; the backend applies them in one batch when the transaction succeeds:
// first drop the UTXO index if Cleared, then Deletes, then Writes.
type KVTxn struct {
	reader  KVReader
	Writes  map[string][]byte
	Deletes map[string]struct{}
	Cleared bool
}

func NewKVTxn(reader KVReader) *KVTxn {
	return &KVTxn{
		reader:  reader,
		Writes:  make(map[string][]byte),
		Deletes: make(map[string]struct{}),
	}
}

func (t *KVTxn) get(key []byte) ([]byte, bool, error) {
	k := string(key)

	if v, ok := t.Writes[k]; ok {
		return v, true, nil
	}

	if _, ok := t.Deletes[k]; ok {
		return nil, false, nil
	}

	if t.Cleared && key[0] == UTXOKeyPrefix {
		return nil, false, nil
	}

	return t.reader.Get(key)
}

func (t *KVTxn) put(key []byte, value []byte) {
	k := string(key)

	t.Writes[k] = value
	delete(t.Deletes, k)
}

func (t *KVTxn) PutTipHash(hash *chainhash.Hash) error {
	t.put(TipKey, hash.CloneBytes())
	return nil
}

func (t *KVTxn) PutUTXOTipHash(hash *chainhash.Hash) error {
	t.put(UTXOTipKey, hash.CloneBytes())
	return nil
}

func (t *KVTxn) PutBlock(block *model.Block) error {
	b, err := block.Bytes()
	if err != nil {
		return errors.NewStorageError("failed to serialize block %s", block.HashHex(), err)
	}

	t.put(BlockKey(&block.Hash), b)

	return nil
}

func (t *KVTxn) GetUTXOEntry(txID *chainhash.Hash) (model.UnspentOutputs, error) {
	v, ok, err := t.get(UTXOKey(txID))
	if err != nil {
		return nil, err
	}

	return DecodeUTXOEntry(txID, v, ok)
}

func (t *KVTxn) PutUTXOEntry(txID *chainhash.Hash, outputs model.UnspentOutputs) error {
	b, err := outputs.Bytes()
	if err != nil {
		return errors.NewStorageError("failed to serialize utxo entry %s", util.HashToHex(*txID), err)
	}

	t.put(UTXOKey(txID), b)

	return nil
}

func (t *KVTxn) DeleteUTXOEntry(txID *chainhash.Hash) error {
	k := string(UTXOKey(txID))

	delete(t.Writes, k)
	t.Deletes[k] = struct{}{}

	return nil
}

func (t *KVTxn) ClearUTXOIndex() error {
	t.Cleared = true

	prefix := string(UTXOPrefix)

	for k := range t.Writes {
		if strings.HasPrefix(k, prefix) {
			delete(t.Writes, k)
		}
	}

	for k := range t.Deletes {
		if strings.HasPrefix(k, prefix) {
			delete(t.Deletes, k)
		}
	}

	return nil
}

// DecodeUTXOEntry turns a raw lookup result into an entry, or errors.ErrNotFound when found
// is false.
func DecodeUTXOEntry(txID *chainhash.Hash, v []byte, found bool) (model.UnspentOutputs, error) {
	if !found {
		return nil, errors.NewNotFoundError("utxo entry %s not found", util.HashToHex(*txID))
	}

	outputs, err := model.NewUnspentOutputsFromBytes(v)
	if err != nil {
		return nil, errors.NewStorageError("failed to decode utxo entry %s", util.HashToHex(*txID), err)
	}

	return outputs, nil
}

// DecodeBlock turns a raw lookup result into a block, or errors.ErrBlockNotFound when found
// is false.
func DecodeBlock(hash *chainhash.Hash, v []byte, found bool) (*model.Block, error) {
	if !found {
		return nil, errors.NewBlockNotFoundError("block %s not found", util.HashToHex(*hash))
	}

	block, err := model.NewBlockFromBytes(v)
	if err != nil {
		return nil, errors.NewStorageError("failed to decode block %s", util.HashToHex(*hash), err)
	}

	return block, nil
}

// DecodeHash turns a raw lookup of a tip pointer into a hash, or errors.ErrNotFound when found
// is false.
func DecodeHash(key []byte, v []byte, found bool) (*chainhash.Hash, error) {
	if !found {
		return nil, errors.ErrNotFound
	}

	hash, ok := HashFromValue(v)
	if !ok {
		return nil, errors.NewStorageError("corrupt hash value under key %q", key)
	}

	return hash, nil
}
