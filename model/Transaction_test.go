package model

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoinbaseTransaction(t *testing.T) {
	w := newTestWallet(t)

	tx, err := NewCoinbaseTransaction(w.Address(), "", 10)
	require.NoError(t, err)

	assert.True(t, tx.IsCoinbase())
	require.Len(t, tx.Inputs, 1)
	assert.Empty(t, tx.Inputs[0].PrevTxID)
	assert.Equal(t, int32(-1), tx.Inputs[0].OutputIndex)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, int64(10), tx.Outputs[0].Value)
	assert.True(t, tx.Outputs[0].IsLockedWithKey(w.PublicKeyHash()))
	assert.Equal(t, "Reward to '"+w.Address()+"'", string(tx.CoinbaseData))

	id, err := tx.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, id, tx.ID)

	t.Run("unique ids", func(t *testing.T) {
		other, err := NewCoinbaseTransaction(w.Address(), "", 10)
		require.NoError(t, err)
		assert.NotEqual(t, tx.ID, other.ID)
	})

	t.Run("invalid address", func(t *testing.T) {
		_, err := NewCoinbaseTransaction("not-an-address", "", 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidAddress))
	})

	t.Run("always verifies", func(t *testing.T) {
		tx.Inputs[0].Signature = []byte("garbage")

		ok, err := tx.Verify(nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestTransactionBytesRoundTrip(t *testing.T) {
	alice := newTestWallet(t)
	bob := newTestWallet(t)

	coinbase, err := NewCoinbaseTransaction(alice.Address(), "genesis", 10)
	require.NoError(t, err)

	tx := spendTx(t, alice, coinbase, 0,
		NewTXOutput(4, bob.PublicKeyHash()),
		NewTXOutput(6, alice.PublicKeyHash()),
	)

	for _, orig := range []*Transaction{coinbase, tx} {
		b, err := orig.Bytes()
		require.NoError(t, err)

		decoded, err := NewTransactionFromBytes(b)
		require.NoError(t, err)
		assert.Equal(t, orig.ID, decoded.ID)
		assert.Equal(t, orig.Kind, decoded.Kind)
		assert.Equal(t, orig.Timestamp, decoded.Timestamp)

		again, err := decoded.Bytes()
		require.NoError(t, err)
		assert.Equal(t, b, again)

		id, err := decoded.ComputeID()
		require.NoError(t, err)
		assert.Equal(t, decoded.ID, id, "signing does not change the id")
	}

	t.Run("tampered output is detected on decode", func(t *testing.T) {
		tampered := tx.TrimmedCopy()
		tampered.Inputs = tx.Inputs
		tampered.Outputs[0].Value = 9

		b, err := tampered.Bytes()
		require.NoError(t, err)

		_, err = NewTransactionFromBytes(b)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTxInvalid))
	})

	b, err := tx.Bytes()
	require.NoError(t, err)

	_, err = NewTransactionFromBytes(append(b, 0x00))
	require.Error(t, err)

	_, err = NewTransactionFromBytes(b[:40])
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	mallory := newTestWallet(t)

	coinbase, err := NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	prevTXs := map[chainhash.Hash]*Transaction{coinbase.ID: coinbase}

	t.Run("valid signature", func(t *testing.T) {
		tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, bob.PublicKeyHash()))

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("mutated output amount", func(t *testing.T) {
		tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, bob.PublicKeyHash()))
		tx.Outputs[0].Value = 9

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("mutated output owner", func(t *testing.T) {
		tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, bob.PublicKeyHash()))
		tx.Outputs[0].PubKeyHash = mallory.PublicKeyHash()

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("signed by a key that does not own the output", func(t *testing.T) {
		tx := spendTx(t, mallory, coinbase, 0, NewTXOutput(10, mallory.PublicKeyHash()))

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("signature from another key with the owner's public key", func(t *testing.T) {
		tx := spendTx(t, mallory, coinbase, 0, NewTXOutput(10, mallory.PublicKeyHash()))
		tx.Inputs[0].PubKey = alice.PublicKey

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("garbage signature", func(t *testing.T) {
		tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, bob.PublicKeyHash()))
		tx.Inputs[0].Signature = []byte{0x30, 0x01}

		ok, err := tx.Verify(prevTXs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing referenced transaction", func(t *testing.T) {
		tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, bob.PublicKeyHash()))

		_, err := tx.Verify(map[chainhash.Hash]*Transaction{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTxInvalid))
		assert.True(t, errors.Is(err, errors.ErrTxNotFound))

		err = tx.Sign(alice.PrivateKey, map[chainhash.Hash]*Transaction{})
		require.Error(t, err)
	})

	t.Run("output index out of range", func(t *testing.T) {
		tx, err := NewTransaction([]*TXInput{{PrevTxID: coinbase.ID[:], OutputIndex: 3}}, []*TXOutput{NewTXOutput(1, bob.PublicKeyHash())})
		require.NoError(t, err)

		err = tx.Sign(alice.PrivateKey, prevTXs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTxInvalid))
	})
}

func TestSignaturesArePerInput(t *testing.T) {
	alice := newTestWallet(t)
	bob := newTestWallet(t)

	cb1, err := NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	cb2, err := NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	prevTXs := map[chainhash.Hash]*Transaction{cb1.ID: cb1, cb2.ID: cb2}

	tx, err := NewTransaction([]*TXInput{
		{PrevTxID: cb1.ID[:], OutputIndex: 0},
		{PrevTxID: cb2.ID[:], OutputIndex: 0},
	}, []*TXOutput{NewTXOutput(20, bob.PublicKeyHash())})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(alice.PrivateKey, prevTXs))

	ok, err := tx.Verify(prevTXs)
	require.NoError(t, err)
	assert.True(t, ok)

	// reusing the first input's signature on the second input must fail
	tx.Inputs[1].Signature = tx.Inputs[0].Signature

	ok, err = tx.Verify(prevTXs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrimmedCopy(t *testing.T) {
	alice := newTestWallet(t)

	coinbase, err := NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, alice.PublicKeyHash()))

	trimmed := tx.TrimmedCopy()
	assert.Nil(t, trimmed.Inputs[0].Signature)
	assert.Nil(t, trimmed.Inputs[0].PubKey)
	assert.NotEmpty(t, tx.Inputs[0].Signature)

	trimmed.Outputs[0].Value = 1
	assert.Equal(t, int64(10), tx.Outputs[0].Value)
}

func TestCheckSanity(t *testing.T) {
	alice := newTestWallet(t)

	coinbase, err := NewCoinbaseTransaction(alice.Address(), "", 10)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(tx *Transaction)
		valid  bool
	}{
		{"untouched", func(*Transaction) {}, true},
		{"id flipped", func(tx *Transaction) { tx.ID[31] ^= 1 }, false},
		{"output changed after id", func(tx *Transaction) { tx.Outputs[0].Value++ }, false},
		{"signature changed", func(tx *Transaction) { tx.Inputs[0].Signature = []byte{1} }, true},
		{"tagged coinbase", func(tx *Transaction) {
			tx.Kind = TxCoinbase
			require.NoError(t, tx.SetID())
		}, false},
		{"unknown kind", func(tx *Transaction) {
			tx.Kind = 7
			require.NoError(t, tx.SetID())
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := spendTx(t, alice, coinbase, 0, NewTXOutput(10, alice.PublicKeyHash()))
			tt.mutate(tx)

			err := tx.CheckSanity()
			if tt.valid {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrTxInvalid))

			// the same transaction would not decode once stored
			b, err := tx.Bytes()
			require.NoError(t, err)

			_, err = NewTransactionFromBytes(b)
			assert.Error(t, err)
		})
	}

	require.NoError(t, coinbase.CheckSanity())
}

func TestUnspentOutputs(t *testing.T) {
	alice := newTestWallet(t)

	tx, err := NewTransaction(nil, []*TXOutput{
		NewTXOutput(1, alice.PublicKeyHash()),
		NewTXOutput(2, alice.PublicKeyHash()),
		NewTXOutput(3, alice.PublicKeyHash()),
	})
	require.NoError(t, err)

	outs := NewUnspentOutputs(tx)
	assert.Equal(t, int64(6), outs.TotalValue())

	outs, found := outs.Remove(1)
	require.True(t, found)
	require.Len(t, outs, 2)

	// index 2 keeps its identity after index 1 is removed
	o, ok := outs.Find(2)
	require.True(t, ok)
	assert.Equal(t, int64(3), o.Output.Value)

	_, ok = outs.Find(1)
	assert.False(t, ok)

	_, found = outs.Remove(1)
	assert.False(t, found)

	b, err := outs.Bytes()
	require.NoError(t, err)

	decoded, err := NewUnspentOutputsFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, outs, decoded)

	_, err = NewUnspentOutputsFromBytes(append(b, 1))
	require.Error(t, err)
}
