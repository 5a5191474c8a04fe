package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/kpango/fastime"
)

const blockHeaderSize = 32 + 32 + 8 + 4 + 8 + 4

// Block is immutable once mined. Hash and Nonce are set by the miner; Height is the distance
// from genesis and is not part of the proof of work.
type Block struct {
	Hash          chainhash.Hash
	PrevBlockHash chainhash.Hash
	Transactions  []*Transaction
	Timestamp     int64 // ms since epoch
	Bits          uint32
	Nonce         uint64
	Height        uint32
}

// NewBlock creates an unmined block on top of prevBlockHash.
func NewBlock(prevBlockHash chainhash.Hash, transactions []*Transaction, bits uint32, height uint32) (*Block, error) {
	if len(transactions) == 0 {
		return nil, errors.NewBlockInvalidError("block must contain at least one transaction")
	}

	return &Block{
		PrevBlockHash: prevBlockHash,
		Transactions:  transactions,
		Timestamp:     fastime.Now().UnixMilli(),
		Bits:          bits,
		Height:        height,
	}, nil
}

// NewGenesisBlock creates the unmined first block, whose previous hash is all zeros.
func NewGenesisBlock(coinbase *Transaction, bits uint32) (*Block, error) {
	return NewBlock(util.ZeroHash, []*Transaction{coinbase}, bits, 0)
}

func (b *Block) IsGenesis() bool {
	return b.PrevBlockHash == util.ZeroHash
}

// HashTransactions returns the Merkle root over the block's transaction IDs.
func (b *Block) HashTransactions() (chainhash.Hash, error) {
	return BuildMerkleRoot(b.Transactions)
}

func (b *Block) HashHex() string {
	return util.HashToHex(b.Hash)
}

func (b *Block) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, blockHeaderSize+256*len(b.Transactions)))

	buf.Write(b.Hash[:])
	buf.Write(b.PrevBlockHash[:])
	buf.Write(util.Int64ToBytes(b.Timestamp))
	buf.Write(util.Uint32ToBytes(b.Bits))
	buf.Write(util.Uint64ToBytes(b.Nonce))
	buf.Write(util.Uint32ToBytes(b.Height))

	if err := wire.WriteVarInt(buf, 0, uint64(len(b.Transactions))); err != nil {
		return nil, errors.NewProcessingError("failed to write transaction count", err)
	}

	for _, tx := range b.Transactions {
		if err := tx.write(buf); err != nil {
			return nil, errors.NewProcessingError("failed to write transaction %s", util.HashToHex(tx.ID), err)
		}
	}

	return buf.Bytes(), nil
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	if len(blockBytes) < blockHeaderSize {
		return nil, errors.NewProcessingError("block too short: %d bytes", len(blockBytes))
	}

	block := &Block{}

	copy(block.Hash[:], blockBytes[0:32])
	copy(block.PrevBlockHash[:], blockBytes[32:64])
	block.Timestamp = int64(binary.BigEndian.Uint64(blockBytes[64:72])) //nolint:gosec // two's complement round trip
	block.Bits = binary.BigEndian.Uint32(blockBytes[72:76])
	block.Nonce = binary.BigEndian.Uint64(blockBytes[76:84])
	block.Height = binary.BigEndian.Uint32(blockBytes[84:88])

	// create new buffer reader for the transactions
	buf := bytes.NewReader(blockBytes[blockHeaderSize:])

	txCount, err := wire.ReadVarInt(buf, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read transaction count", err)
	}

	if txCount == 0 || txCount > maxFieldSize {
		return nil, errors.NewProcessingError("invalid transaction count %d", txCount)
	}

	block.Transactions = make([]*Transaction, 0, txCount)

	for i := uint64(0); i < txCount; i++ {
		tx, err := readTransaction(buf)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read transaction %d", i, err)
		}

		block.Transactions = append(block.Transactions, tx)
	}

	if _, err = buf.ReadByte(); err != io.EOF {
		return nil, errors.NewProcessingError("trailing bytes after block")
	}

	return block, nil
}

// TransactionCount returns the number of transactions as uint32.
func (b *Block) TransactionCount() (uint32, error) {
	return safeconversion.IntToUint32(len(b.Transactions))
}

func (b *Block) String() string {
	var lines []string

	lines = append(lines,
		fmt.Sprintf("============ Block %s ============", b.HashHex()),
		fmt.Sprintf("Height:    %d", b.Height),
		fmt.Sprintf("Prev:      %s", util.HashToHex(b.PrevBlockHash)),
		fmt.Sprintf("Timestamp: %d", b.Timestamp),
		fmt.Sprintf("Bits:      %d", b.Bits),
		fmt.Sprintf("Nonce:     %d", b.Nonce),
	)

	for _, tx := range b.Transactions {
		lines = append(lines, tx.String())
	}

	return strings.Join(lines, "\n")
}
