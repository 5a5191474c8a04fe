package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/google/uuid"
	"github.com/kpango/fastime"
)

// TxKind is fixed when a transaction is constructed.
type TxKind uint8

const (
	TxStandard TxKind = iota
	TxCoinbase
)

func (k TxKind) String() string {
	switch k {
	case TxStandard:
		return "standard"
	case TxCoinbase:
		return "coinbase"
	default:
		return fmt.Sprintf("TxKind(%d)", uint8(k))
	}
}

// Transaction moves value from the outputs referenced by Inputs to Outputs.
//
// ID is the SHA-256 of the serialized transaction with the ID, signatures and public keys left
// out, so signing does not change it.
type Transaction struct {
	ID           chainhash.Hash
	Kind         TxKind
	Inputs       []*TXInput
	Outputs      []*TXOutput
	Timestamp    int64 // ms since epoch
	CoinbaseData []byte
	ExtraNonce   []byte
}

// NewCoinbaseTransaction creates the reward transaction paying subsidy to address. An empty
// data defaults to "Reward to '<address>'".
func NewCoinbaseTransaction(address string, data string, subsidy int64) (*Transaction, error) {
	if data == "" {
		data = fmt.Sprintf("Reward to '%s'", address)
	}

	out, err := NewTXOutputToAddress(subsidy, address)
	if err != nil {
		return nil, err
	}

	extraNonce := uuid.New()

	tx := &Transaction{
		Kind: TxCoinbase,
		Inputs: []*TXInput{{
			PrevTxID:    []byte{},
			OutputIndex: -1,
		}},
		Outputs:      []*TXOutput{out},
		Timestamp:    fastime.Now().UnixMilli(),
		CoinbaseData: []byte(data),
		ExtraNonce:   extraNonce[:],
	}

	if err = tx.SetID(); err != nil {
		return nil, err
	}

	return tx, nil
}

// NewTransaction creates an unsigned standard transaction and assigns its ID.
func NewTransaction(inputs []*TXInput, outputs []*TXOutput) (*Transaction, error) {
	tx := &Transaction{
		Kind:      TxStandard,
		Inputs:    inputs,
		Outputs:   outputs,
		Timestamp: fastime.Now().UnixMilli(),
	}

	if err := tx.SetID(); err != nil {
		return nil, err
	}

	return tx, nil
}

// IsCoinbase reports whether tx is a block reward.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Kind == TxCoinbase
}

func (tx *Transaction) writeBody(w io.Writer) error {
	if _, err := w.Write([]byte{byte(tx.Kind)}); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Inputs))); err != nil {
		return err
	}

	for _, in := range tx.Inputs {
		if err := in.write(w); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Outputs))); err != nil {
		return err
	}

	for _, out := range tx.Outputs {
		if err := out.write(w); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.BigEndian, tx.Timestamp); err != nil {
		return err
	}

	if err := wire.WriteVarBytes(w, 0, tx.CoinbaseData); err != nil {
		return err
	}

	return wire.WriteVarBytes(w, 0, tx.ExtraNonce)
}

// Hash returns the SHA-256 of the transaction serialized without its ID. Unlike ComputeID it
// covers signatures and public keys, which is what the per-input signing digest relies on.
func (tx *Transaction) Hash() (chainhash.Hash, error) {
	buf := &bytes.Buffer{}
	if err := tx.writeBody(buf); err != nil {
		return chainhash.Hash{}, errors.NewProcessingError("failed to serialize transaction", err)
	}

	return util.Sha256Hash(buf.Bytes()), nil
}

// ComputeID returns the hash of the trimmed copy of tx.
func (tx *Transaction) ComputeID() (chainhash.Hash, error) {
	return tx.TrimmedCopy().Hash()
}

// SetID recomputes ID from the current inputs and outputs.
func (tx *Transaction) SetID() error {
	h, err := tx.ComputeID()
	if err != nil {
		return err
	}

	tx.ID = h

	return nil
}

// Bytes serializes the ID followed by the transaction body.
func (tx *Transaction) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	buf.Write(tx.ID[:])

	if err := tx.writeBody(buf); err != nil {
		return nil, errors.NewProcessingError("failed to serialize transaction %s", util.HashToHex(tx.ID), err)
	}

	return buf.Bytes(), nil
}

func (tx *Transaction) write(w io.Writer) error {
	if _, err := w.Write(tx.ID[:]); err != nil {
		return err
	}

	return tx.writeBody(w)
}

func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	r := bytes.NewReader(b)

	tx, err := readTransaction(r)
	if err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, errors.NewProcessingError("trailing bytes after transaction")
	}

	return tx, nil
}

func readTransaction(r io.Reader) (*Transaction, error) {
	tx := &Transaction{}

	if _, err := io.ReadFull(r, tx.ID[:]); err != nil {
		return nil, errors.NewProcessingError("failed to read transaction id", err)
	}

	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return nil, errors.NewProcessingError("failed to read transaction kind", err)
	}

	tx.Kind = TxKind(kind[0])
	if tx.Kind != TxStandard && tx.Kind != TxCoinbase {
		return nil, errors.NewProcessingError("unknown transaction kind %d", kind[0])
	}

	inCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read input count", err)
	}

	if inCount > maxFieldSize {
		return nil, errors.NewProcessingError("too many inputs: %d", inCount)
	}

	tx.Inputs = make([]*TXInput, 0, inCount)

	for i := uint64(0); i < inCount; i++ {
		in, err := readTXInput(r)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read input %d", i, err)
		}

		tx.Inputs = append(tx.Inputs, in)
	}

	outCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read output count", err)
	}

	if outCount > maxFieldSize {
		return nil, errors.NewProcessingError("too many outputs: %d", outCount)
	}

	tx.Outputs = make([]*TXOutput, 0, outCount)

	for i := uint64(0); i < outCount; i++ {
		out, err := readTXOutput(r)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read output %d", i, err)
		}

		tx.Outputs = append(tx.Outputs, out)
	}

	if err = binary.Read(r, binary.BigEndian, &tx.Timestamp); err != nil {
		return nil, errors.NewProcessingError("failed to read timestamp", err)
	}

	if tx.CoinbaseData, err = wire.ReadVarBytes(r, 0, maxFieldSize, "coinbaseData"); err != nil {
		return nil, errors.NewProcessingError("failed to read coinbase data", err)
	}

	if tx.ExtraNonce, err = wire.ReadVarBytes(r, 0, maxFieldSize, "extraNonce"); err != nil {
		return nil, errors.NewProcessingError("failed to read extra nonce", err)
	}

	if err = tx.CheckSanity(); err != nil {
		return nil, err
	}

	return tx, nil
}

// CheckSanity checks what a transaction must satisfy before it can be stored: a known kind, a
// coinbase carrying exactly the null input, and an ID that matches the contents. Blocks holding
// a transaction that fails here could not be decoded again.
func (tx *Transaction) CheckSanity() error {
	if tx.Kind != TxStandard && tx.Kind != TxCoinbase {
		return errors.NewTxInvalidError("transaction %s has unknown kind %d", util.HashToHex(tx.ID), uint8(tx.Kind))
	}

	if tx.IsCoinbase() && !hasCoinbaseShape(tx) {
		return errors.NewTxInvalidError("coinbase transaction %s has malformed input", util.HashToHex(tx.ID))
	}

	id, err := tx.ComputeID()
	if err != nil {
		return err
	}

	if id != tx.ID {
		return errors.NewTxInvalidError("transaction id %s does not match its contents (%s)", util.HashToHex(tx.ID), util.HashToHex(id))
	}

	return nil
}

func hasCoinbaseShape(tx *Transaction) bool {
	return len(tx.Inputs) == 1 && len(tx.Inputs[0].PrevTxID) == 0 && tx.Inputs[0].OutputIndex == -1
}

// TrimmedCopy returns a deep copy with every signature and public key cleared.
func (tx *Transaction) TrimmedCopy() *Transaction {
	inputs := make([]*TXInput, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputs = append(inputs, &TXInput{
			PrevTxID:    append([]byte(nil), in.PrevTxID...),
			OutputIndex: in.OutputIndex,
		})
	}

	outputs := make([]*TXOutput, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outputs = append(outputs, NewTXOutput(out.Value, append([]byte(nil), out.PubKeyHash...)))
	}

	return &Transaction{
		ID:           tx.ID,
		Kind:         tx.Kind,
		Inputs:       inputs,
		Outputs:      outputs,
		Timestamp:    tx.Timestamp,
		CoinbaseData: append([]byte(nil), tx.CoinbaseData...),
		ExtraNonce:   append([]byte(nil), tx.ExtraNonce...),
	}
}

// referencedOutput looks up the output spent by in.
func referencedOutput(in *TXInput, prevTXs map[chainhash.Hash]*Transaction) (*TXOutput, error) {
	prevHash := in.PrevTxHash()
	if prevHash == nil {
		return nil, errors.NewTxInvalidError("input references malformed transaction id %x", in.PrevTxID)
	}

	prevTx, ok := prevTXs[*prevHash]
	if !ok || prevTx == nil {
		return nil, errors.NewTxInvalidError("referenced transaction %s not found", util.HashToHex(*prevHash), errors.ErrTxNotFound)
	}

	if in.OutputIndex < 0 || int(in.OutputIndex) >= len(prevTx.Outputs) {
		return nil, errors.NewTxInvalidError("output index %d out of range for transaction %s", in.OutputIndex, util.HashToHex(*prevHash))
	}

	return prevTx.Outputs[in.OutputIndex], nil
}

// Sign signs every input with privKey. prevTXs must contain every transaction referenced by
// the inputs. The digest for input i is the hash of the trimmed copy with only input i's
// public key set to the referenced output's public-key hash.
func (tx *Transaction) Sign(privKey *bec.PrivateKey, prevTXs map[chainhash.Hash]*Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}

	for _, in := range tx.Inputs {
		if _, err := referencedOutput(in, prevTXs); err != nil {
			return err
		}
	}

	txCopy := tx.TrimmedCopy()
	pubKey := privKey.PubKey().Compressed()

	for i, in := range txCopy.Inputs {
		prevOut, _ := referencedOutput(in, prevTXs)

		digest, err := txCopy.signatureDigest(i, prevOut.PubKeyHash)
		if err != nil {
			return err
		}

		sig, err := privKey.Sign(digest)
		if err != nil {
			return errors.NewTxError("failed to sign input %d of %s", i, util.HashToHex(tx.ID), err)
		}

		tx.Inputs[i].Signature = sig.Serialize()
		tx.Inputs[i].PubKey = pubKey
	}

	return nil
}

func (tx *Transaction) signatureDigest(i int, pubKeyHash []byte) ([]byte, error) {
	tx.Inputs[i].PubKey = pubKeyHash
	defer func() {
		tx.Inputs[i].PubKey = nil
	}()

	h, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	return h[:], nil
}

// Verify checks every input's signature and that the input's public key owns the referenced
// output. Coinbase transactions always verify. A missing referenced transaction is an error,
// a bad signature is not.
func (tx *Transaction) Verify(prevTXs map[chainhash.Hash]*Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	if len(tx.Inputs) == 0 {
		return false, nil
	}

	prevOuts := make([]*TXOutput, len(tx.Inputs))

	for i, in := range tx.Inputs {
		prevOut, err := referencedOutput(in, prevTXs)
		if err != nil {
			return false, err
		}

		prevOuts[i] = prevOut
	}

	txCopy := tx.TrimmedCopy()

	for i, in := range tx.Inputs {
		if !in.UsesKey(prevOuts[i].PubKeyHash) {
			return false, nil
		}

		digest, err := txCopy.signatureDigest(i, prevOuts[i].PubKeyHash)
		if err != nil {
			return false, err
		}

		pubKey, err := bec.ParsePubKey(in.PubKey)
		if err != nil {
			return false, nil
		}

		sig, err := bec.ParseDERSignature(in.Signature)
		if err != nil {
			return false, nil
		}

		if !sig.Verify(digest, pubKey) {
			return false, nil
		}
	}

	return true, nil
}

func (tx *Transaction) String() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("--- Transaction %s (%s):", util.HashToHex(tx.ID), tx.Kind))

	for i, in := range tx.Inputs {
		lines = append(lines,
			fmt.Sprintf("     Input %d:", i),
			fmt.Sprintf("       TXID:      %x", in.PrevTxID),
			fmt.Sprintf("       Out:       %d", in.OutputIndex),
			fmt.Sprintf("       Signature: %x", in.Signature),
			fmt.Sprintf("       PubKey:    %x", in.PubKey),
		)
	}

	for i, out := range tx.Outputs {
		lines = append(lines,
			fmt.Sprintf("     Output %d:", i),
			fmt.Sprintf("       Value:  %d", out.Value),
			fmt.Sprintf("       Script: %x", out.PubKeyHash),
		)
	}

	if tx.IsCoinbase() {
		lines = append(lines, fmt.Sprintf("     Data: %s", tx.CoinbaseData))
	}

	return strings.Join(lines, "\n")
}
