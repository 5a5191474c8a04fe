package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
)

// MerkleTree commits to an ordered list of transaction IDs. Every level with an odd number of
// nodes has its last node duplicated, and at least one pairing pass is always made, so a single
// leaf L has root SHA-256(L || L).
type MerkleTree struct {
	// levels[0] holds the leaves, the last level holds the root. Every level except the root is
	// padded to an even length.
	levels [][]chainhash.Hash
}

// MerkleProofStep is one sibling on the path from a leaf to the root.
type MerkleProofStep struct {
	Hash chainhash.Hash
	Left bool // sibling is the left operand
}

func hashPair(a, b chainhash.Hash) chainhash.Hash {
	return util.Sha256Hash(util.ConcatBytes(a[:], b[:]))
}

func NewMerkleTree(leaves []chainhash.Hash) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.NewInvalidArgumentError("merkle tree needs at least one leaf")
	}

	level := make([]chainhash.Hash, len(leaves))
	copy(level, leaves)

	tree := &MerkleTree{}

	for {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		tree.levels = append(tree.levels, level)

		next := make([]chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}

		level = next

		if len(level) == 1 {
			break
		}
	}

	tree.levels = append(tree.levels, level)

	return tree, nil
}

func (m *MerkleTree) Root() chainhash.Hash {
	return m.levels[len(m.levels)-1][0]
}

// Proof returns the sibling path for the leaf at index.
func (m *MerkleTree) Proof(index int) ([]MerkleProofStep, error) {
	if index < 0 || index >= len(m.levels[0]) {
		return nil, errors.NewInvalidArgumentError("leaf index %d out of range", index)
	}

	proof := make([]MerkleProofStep, 0, len(m.levels)-1)

	for _, level := range m.levels[:len(m.levels)-1] {
		if index%2 == 0 {
			proof = append(proof, MerkleProofStep{Hash: level[index+1], Left: false})
		} else {
			proof = append(proof, MerkleProofStep{Hash: level[index-1], Left: true})
		}

		index /= 2
	}

	return proof, nil
}

// VerifyMerkleProof reports whether leaf combined with proof hashes to root.
func VerifyMerkleProof(leaf chainhash.Hash, proof []MerkleProofStep, root chainhash.Hash) bool {
	h := leaf

	for _, step := range proof {
		if step.Left {
			h = hashPair(step.Hash, h)
		} else {
			h = hashPair(h, step.Hash)
		}
	}

	return h == root
}

// BuildMerkleRoot returns the Merkle root over the IDs of txs.
func BuildMerkleRoot(txs []*Transaction) (chainhash.Hash, error) {
	ids := make([]chainhash.Hash, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}

	tree, err := NewMerkleTree(ids)
	if err != nil {
		return chainhash.Hash{}, err
	}

	return tree.Root(), nil
}
