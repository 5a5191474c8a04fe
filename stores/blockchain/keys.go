package blockchain

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Key layout shared by the key-value backends.
const (
	TipKeyPrefix     byte = 'l'
	BlockKeyPrefix   byte = 'b'
	UTXOKeyPrefix    byte = 'c'
	UTXOTipKeyPrefix byte = 'u'
	utxoKeyLength         = 1 + chainhash.HashSize
	blockKeyLength        = 1 + chainhash.HashSize
)

var (
	TipKey     = []byte{TipKeyPrefix}
	UTXOTipKey = []byte{UTXOTipKeyPrefix}
	UTXOPrefix = []byte{UTXOKeyPrefix}
)

func BlockKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 0, blockKeyLength)
	key = append(key, BlockKeyPrefix)

	return append(key, hash[:]...)
}

func UTXOKey(txID *chainhash.Hash) []byte {
	key := make([]byte, 0, utxoKeyLength)
	key = append(key, UTXOKeyPrefix)

	return append(key, txID[:]...)
}

// TxIDFromUTXOKey is the inverse of UTXOKey. ok is false for keys of any other shape.
func TxIDFromUTXOKey(key []byte) (txID chainhash.Hash, ok bool) {
	if len(key) != utxoKeyLength || key[0] != UTXOKeyPrefix {
		return txID, false
	}

	copy(txID[:], key[1:])

	return txID, true
}

// HashFromValue decodes a stored 32 byte hash value, such as the tip pointers.
func HashFromValue(b []byte) (*chainhash.Hash, bool) {
	if len(b) != chainhash.HashSize {
		return nil, false
	}

	var h chainhash.Hash

	copy(h[:], b)

	return &h, true
}
