package model

import (
	"bytes"
	"io"
	"sort"

	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/minichain/errors"
)

// UnspentOutput is an output that no input has referenced yet, together with its position in
// the transaction that created it. Keeping the index means removing one output never shifts
// the identity of the others.
type UnspentOutput struct {
	Index  uint32
	Output *TXOutput
}

// UnspentOutputs is one UTXO index entry, sorted by Index.
type UnspentOutputs []*UnspentOutput

// NewUnspentOutputs wraps every output of tx.
func NewUnspentOutputs(tx *Transaction) UnspentOutputs {
	outs := make(UnspentOutputs, 0, len(tx.Outputs))

	for i, out := range tx.Outputs {
		outs = append(outs, &UnspentOutput{
			Index:  uint32(i), //nolint:gosec // output count is bounded by maxFieldSize on decode
			Output: out,
		})
	}

	return outs
}

// Find returns the output at original index idx.
func (u UnspentOutputs) Find(idx uint32) (*UnspentOutput, bool) {
	i := sort.Search(len(u), func(i int) bool { return u[i].Index >= idx })
	if i < len(u) && u[i].Index == idx {
		return u[i], true
	}

	return nil, false
}

// Remove returns a copy of u without index idx, and whether idx was present.
func (u UnspentOutputs) Remove(idx uint32) (UnspentOutputs, bool) {
	remaining := make(UnspentOutputs, 0, len(u))
	found := false

	for _, o := range u {
		if o.Index == idx {
			found = true
			continue
		}

		remaining = append(remaining, o)
	}

	return remaining, found
}

// TotalValue sums the outputs' values.
func (u UnspentOutputs) TotalValue() int64 {
	var total int64
	for _, o := range u {
		total += o.Output.Value
	}

	return total
}

func (u UnspentOutputs) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}

	if err := wire.WriteVarInt(buf, 0, uint64(len(u))); err != nil {
		return nil, err
	}

	for _, o := range u {
		if err := wire.WriteVarInt(buf, 0, uint64(o.Index)); err != nil {
			return nil, err
		}

		if err := o.Output.write(buf); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func NewUnspentOutputsFromBytes(b []byte) (UnspentOutputs, error) {
	r := bytes.NewReader(b)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read utxo entry length", err)
	}

	if count > maxFieldSize {
		return nil, errors.NewProcessingError("utxo entry too large: %d outputs", count)
	}

	outs := make(UnspentOutputs, 0, count)

	for i := uint64(0); i < count; i++ {
		idx, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read utxo index", err)
		}

		if idx > maxFieldSize {
			return nil, errors.NewProcessingError("utxo index out of range: %d", idx)
		}

		out, err := readTXOutput(r)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read utxo output", err)
		}

		outs = append(outs, &UnspentOutput{Index: uint32(idx), Output: out})
	}

	if _, err = r.ReadByte(); err != io.EOF {
		return nil, errors.NewProcessingError("trailing bytes after utxo entry")
	}

	return outs, nil
}
