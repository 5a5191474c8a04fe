package wallet

import (
	"bytes"

	base58 "github.com/bsv-blockchain/go-sdk/compat/base58"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
)

const (
	// AddressVersion is the version byte prefixed to the public-key hash.
	AddressVersion byte = 0x00

	addressChecksumLen = 4
	pubKeyHashLen      = 20
)

func checksum(payload []byte) []byte {
	return util.Sha256d(payload)[:addressChecksumLen]
}

// PublicKeyHashToAddress encodes Base58Check(version || pubKeyHash || checksum).
func PublicKeyHashToAddress(pubKeyHash []byte) string {
	versioned := util.ConcatBytes([]byte{AddressVersion}, pubKeyHash)

	return base58.Encode(util.ConcatBytes(versioned, checksum(versioned)))
}

// AddressToPublicKeyHash extracts the public-key hash from a Base58Check address.
func AddressToPublicKeyHash(address string) ([]byte, error) {
	if address == "" {
		return nil, errors.NewInvalidAddressError("empty address")
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, errors.NewInvalidAddressError("address %q is not base58", address, err)
	}

	if len(decoded) != 1+pubKeyHashLen+addressChecksumLen {
		return nil, errors.NewInvalidAddressError("address %q has invalid length %d", address, len(decoded))
	}

	payload := decoded[:len(decoded)-addressChecksumLen]
	if !bytes.Equal(checksum(payload), decoded[len(decoded)-addressChecksumLen:]) {
		return nil, errors.NewInvalidAddressError("address %q has invalid checksum", address)
	}

	if payload[0] != AddressVersion {
		return nil, errors.NewInvalidAddressError("address %q has unsupported version %d", address, payload[0])
	}

	return payload[1:], nil
}

func ValidateAddress(address string) bool {
	_, err := AddressToPublicKeyHash(address)
	return err == nil
}
