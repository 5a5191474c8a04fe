// Package util holds the hashing and byte-encoding helpers shared by the ledger model and the
// stores.
package util

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"golang.org/x/crypto/ripemd160" //nolint:gosec,staticcheck // address hashing is defined on RIPEMD-160
)

// ZeroHash is the previous-block sentinel of the genesis block.
var ZeroHash = chainhash.Hash{}

// Sha256 returns the single SHA-256 digest of b.
func Sha256(b []byte) []byte {
	return chainhash.HashB(b)
}

// Sha256Hash is Sha256 returning a chainhash.Hash. The bytes are kept in digest order.
func Sha256Hash(b []byte) chainhash.Hash {
	return chainhash.HashH(b)
}

// Sha256d returns SHA-256(SHA-256(b)).
func Sha256d(b []byte) []byte {
	return chainhash.DoubleHashB(b)
}

// Hash160 returns RIPEMD-160(SHA-256(b)), the public-key hash that locks an output.
func Hash160(b []byte) []byte {
	h := ripemd160.New()
	_, _ = h.Write(Sha256(b))

	return h.Sum(nil)
}

// HashToHex encodes h in digest byte order. chainhash.Hash.String reverses the bytes, which
// is not what block and transaction identifiers use here.
func HashToHex(h chainhash.Hash) string {
	return hex.EncodeToString(h[:])
}

// HashFromHex is the inverse of HashToHex.
func HashFromHex(s string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return chainhash.NewHash(b)
}
