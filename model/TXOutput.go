package model

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/minichain/wallet"
)

// TXOutput locks Value to the owner of PubKeyHash.
type TXOutput struct {
	Value      int64
	PubKeyHash []byte
}

func NewTXOutput(value int64, pubKeyHash []byte) *TXOutput {
	return &TXOutput{
		Value:      value,
		PubKeyHash: pubKeyHash,
	}
}

// NewTXOutputToAddress locks value to the public-key hash encoded in address.
func NewTXOutputToAddress(value int64, address string) (*TXOutput, error) {
	pubKeyHash, err := wallet.AddressToPublicKeyHash(address)
	if err != nil {
		return nil, err
	}

	return NewTXOutput(value, pubKeyHash), nil
}

func (out *TXOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

func (out *TXOutput) write(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, out.Value); err != nil {
		return err
	}

	return wire.WriteVarBytes(w, 0, out.PubKeyHash)
}

func readTXOutput(r io.Reader) (*TXOutput, error) {
	out := &TXOutput{}

	if err := binary.Read(r, binary.BigEndian, &out.Value); err != nil {
		return nil, err
	}

	var err error
	if out.PubKeyHash, err = wire.ReadVarBytes(r, 0, maxFieldSize, "pubKeyHash"); err != nil {
		return nil, err
	}

	return out, nil
}
