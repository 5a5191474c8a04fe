package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/ordishs/gocore"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQL) GetUTXOEntry(ctx context.Context, txID *chainhash.Hash) (model.UnspentOutputs, error) {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat("GetUTXOEntry").AddTime(start)
	}()

	return getUTXOEntry(ctx, s.db, txID)
}

func getUTXOEntry(ctx context.Context, db queryer, txID *chainhash.Hash) (model.UnspentOutputs, error) {
	q := `
		SELECT data
		FROM utxos
		WHERE tx_id = $1
	`

	var data []byte

	if err := db.QueryRowContext(ctx, q, txID[:]).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return blockchain.DecodeUTXOEntry(txID, nil, false)
		}

		return nil, errors.NewStorageUnavailableError("failed to read utxo entry %s", util.HashToHex(*txID), err)
	}

	return blockchain.DecodeUTXOEntry(txID, data, true)
}

// IterateUTXOIndex streams the utxos table ordered by tx_id. Both sqlite and postgres compare
// blobs bytewise, so the order matches the key-value backends. fn must not call back into the
// store: sqlite runs on a single connection that the open cursor holds.
func (s *SQL) IterateUTXOIndex(ctx context.Context, fn blockchain.UTXOVisitor) error {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat("IterateUTXOIndex").AddTime(start)
	}()

	q := `
		SELECT tx_id, data
		FROM utxos
		ORDER BY tx_id
	`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return errors.NewStorageUnavailableError("failed to query utxo index", err)
	}

	defer rows.Close()

	for rows.Next() {
		var (
			txIDBytes []byte
			data      []byte
		)

		if err = rows.Scan(&txIDBytes, &data); err != nil {
			return errors.NewStorageError("failed to scan utxo row", err)
		}

		txID, ok := blockchain.HashFromValue(txIDBytes)
		if !ok {
			return errors.NewStorageError("corrupt utxo tx_id %x", txIDBytes)
		}

		outputs, err := model.NewUnspentOutputsFromBytes(data)
		if err != nil {
			return errors.NewStorageError("failed to decode utxo entry %s", util.HashToHex(*txID), err)
		}

		if !fn(*txID, outputs) {
			return nil
		}
	}

	if err = rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.NewContextCanceledError("utxo index iteration canceled", ctxErr)
		}

		return errors.NewStorageUnavailableError("utxo index iteration failed", err)
	}

	return nil
}
