package model

import (
	"math/big"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
)

// MaxDifficultyBits keeps the target above zero.
const MaxDifficultyBits = 255

// Target returns 2^(256-bits). A valid block hash, read as a big-endian integer, is strictly
// below it.
func Target(bits uint32) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(256-bits))
}

// ProofOfWork binds a block to its difficulty target. The Merkle root is computed once so the
// nonce search only re-hashes the fixed-size header.
type ProofOfWork struct {
	block      *Block
	target     *big.Int
	merkleRoot chainhash.Hash
}

func NewProofOfWork(block *Block) (*ProofOfWork, error) {
	if block.Bits == 0 || block.Bits > MaxDifficultyBits {
		return nil, errors.NewInvalidArgumentError("difficulty bits %d out of range [1, %d]", block.Bits, MaxDifficultyBits)
	}

	merkleRoot, err := block.HashTransactions()
	if err != nil {
		return nil, err
	}

	return &ProofOfWork{
		block:      block,
		target:     Target(block.Bits),
		merkleRoot: merkleRoot,
	}, nil
}

func (pow *ProofOfWork) Target() *big.Int {
	return new(big.Int).Set(pow.target)
}

func (pow *ProofOfWork) MerkleRoot() chainhash.Hash {
	return pow.merkleRoot
}

// Prepare returns prevHash || merkleRoot || timestamp (8 bytes) || bits (4 bytes) || nonce
// (8 bytes), all integers big-endian.
func (pow *ProofOfWork) Prepare(nonce uint64) []byte {
	return util.ConcatBytes(
		pow.block.PrevBlockHash[:],
		pow.merkleRoot[:],
		util.Int64ToBytes(pow.block.Timestamp),
		util.Uint32ToBytes(pow.block.Bits),
		util.Uint64ToBytes(nonce),
	)
}

// HashWithNonce returns the block hash the header would have with nonce.
func (pow *ProofOfWork) HashWithNonce(nonce uint64) chainhash.Hash {
	return util.Sha256Hash(pow.Prepare(nonce))
}

// MeetsTarget reports whether hash, read as a big-endian integer, is below the target.
func (pow *ProofOfWork) MeetsTarget(hash chainhash.Hash) bool {
	return new(big.Int).SetBytes(hash[:]).Cmp(pow.target) < 0
}

// Validate recomputes the hash from the block's stored nonce. It fails when the hash does not
// meet the target or differs from the stored hash.
func (pow *ProofOfWork) Validate() bool {
	hash := pow.HashWithNonce(pow.block.Nonce)

	return hash == pow.block.Hash && pow.MeetsTarget(hash)
}
