// Package wallet holds key pairs and the Base58Check address encoding.
package wallet

import (
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
)

type Wallet struct {
	PrivateKey *bec.PrivateKey
	PublicKey  []byte // compressed
}

func New() (*Wallet, error) {
	privateKey, err := bec.NewPrivateKey()
	if err != nil {
		return nil, errors.NewProcessingError("failed to generate private key", err)
	}

	return FromPrivateKey(privateKey), nil
}

func FromPrivateKey(privateKey *bec.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PubKey().Compressed(),
	}
}

// FromPrivateKeyBytes restores a wallet from a 32-byte serialized private key.
func FromPrivateKeyBytes(b []byte) (*Wallet, error) {
	if len(b) != 32 {
		return nil, errors.NewInvalidArgumentError("private key must be 32 bytes, got %d", len(b))
	}

	privateKey, _ := bec.PrivateKeyFromBytes(b)

	return FromPrivateKey(privateKey), nil
}

func (w *Wallet) PublicKeyHash() []byte {
	return util.Hash160(w.PublicKey)
}

func (w *Wallet) Address() string {
	return PublicKeyHashToAddress(w.PublicKeyHash())
}
