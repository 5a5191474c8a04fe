package main

import (
	"encoding/hex"

	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/bsv-blockchain/minichain/wallet"
)

type blockView struct {
	Hash          string   `json:"hash"`
	PrevBlockHash string   `json:"prev_block_hash"`
	Height        uint32   `json:"height"`
	Timestamp     int64    `json:"timestamp"`
	Bits          uint32   `json:"bits"`
	Nonce         uint64   `json:"nonce"`
	TxCount       uint32   `json:"tx_count"`
	Transactions  []txView `json:"transactions"`
}

type txView struct {
	ID           string       `json:"id"`
	Kind         string       `json:"kind"`
	Inputs       []inputView  `json:"inputs,omitempty"`
	Outputs      []outputView `json:"outputs"`
	CoinbaseData string       `json:"coinbase_data,omitempty"`
}

type inputView struct {
	TxID        string `json:"txid"`
	OutputIndex int32  `json:"vout"`
	Signature   string `json:"signature"`
	PubKey      string `json:"pubkey"`
}

type outputView struct {
	Value   int64  `json:"value"`
	Address string `json:"address"`
}

func newBlockView(block *model.Block) (blockView, error) {
	txCount, err := block.TransactionCount()
	if err != nil {
		return blockView{}, err
	}

	v := blockView{
		Hash:          block.HashHex(),
		PrevBlockHash: util.HashToHex(block.PrevBlockHash),
		Height:        block.Height,
		Timestamp:     block.Timestamp,
		Bits:          block.Bits,
		Nonce:         block.Nonce,
		TxCount:       txCount,
		Transactions:  make([]txView, 0, len(block.Transactions)),
	}

	for _, tx := range block.Transactions {
		v.Transactions = append(v.Transactions, newTxView(tx))
	}

	return v, nil
}

func newTxView(tx *model.Transaction) txView {
	tv := txView{
		ID:      util.HashToHex(tx.ID),
		Kind:    tx.Kind.String(),
		Outputs: make([]outputView, 0, len(tx.Outputs)),
	}

	if tx.IsCoinbase() {
		tv.CoinbaseData = string(tx.CoinbaseData)
	} else {
		for _, in := range tx.Inputs {
			prev := ""
			if h := in.PrevTxHash(); h != nil {
				prev = util.HashToHex(*h)
			}

			tv.Inputs = append(tv.Inputs, inputView{
				TxID:        prev,
				OutputIndex: in.OutputIndex,
				Signature:   hex.EncodeToString(in.Signature),
				PubKey:      hex.EncodeToString(in.PubKey),
			})
		}
	}

	for _, out := range tx.Outputs {
		tv.Outputs = append(tv.Outputs, outputView{
			Value:   out.Value,
			Address: wallet.PublicKeyHashToAddress(out.PubKeyHash),
		})
	}

	return tv
}
