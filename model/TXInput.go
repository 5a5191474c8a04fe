package model

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/minichain/util"
)

const maxFieldSize = 1 << 20

// TXInput spends output OutputIndex of transaction PrevTxID. A coinbase input has an empty
// PrevTxID and index -1.
type TXInput struct {
	PrevTxID    []byte
	OutputIndex int32
	Signature   []byte
	PubKey      []byte
}

// PrevTxHash returns PrevTxID as a hash, or nil when it is not 32 bytes long.
func (in *TXInput) PrevTxHash() *chainhash.Hash {
	h, err := chainhash.NewHash(in.PrevTxID)
	if err != nil {
		return nil
	}

	return h
}

// UsesKey reports whether the input's public key hashes to pubKeyHash.
func (in *TXInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(util.Hash160(in.PubKey), pubKeyHash)
}

func (in *TXInput) write(w io.Writer) error {
	if err := wire.WriteVarBytes(w, 0, in.PrevTxID); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, in.OutputIndex); err != nil {
		return err
	}

	if err := wire.WriteVarBytes(w, 0, in.Signature); err != nil {
		return err
	}

	return wire.WriteVarBytes(w, 0, in.PubKey)
}

func readTXInput(r io.Reader) (*TXInput, error) {
	in := &TXInput{}

	var err error

	if in.PrevTxID, err = wire.ReadVarBytes(r, 0, maxFieldSize, "prevTxID"); err != nil {
		return nil, err
	}

	if err = binary.Read(r, binary.BigEndian, &in.OutputIndex); err != nil {
		return nil, err
	}

	if in.Signature, err = wire.ReadVarBytes(r, 0, maxFieldSize, "signature"); err != nil {
		return nil, err
	}

	if in.PubKey, err = wire.ReadVarBytes(r, 0, maxFieldSize, "pubKey"); err != nil {
		return nil, err
	}

	return in, nil
}
