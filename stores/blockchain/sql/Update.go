package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/tracing"
	"github.com/bsv-blockchain/minichain/util"
)

// Update runs fn inside a database transaction. The transaction is rolled back if fn fails.
func (s *SQL) Update(ctx context.Context, fn func(txn blockchain.Txn) error) (err error) {
	ctx, _, deferFn := tracing.StartTracing(ctx, "sql:Update")
	defer deferFn()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageUnavailableError("failed to begin transaction", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Errorf("failed to roll back transaction: %v", rbErr)
			}
		}
	}()

	if err = fn(&sqlTxn{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.NewStorageUnavailableError("failed to commit transaction", err)
	}

	return nil
}

type sqlTxn struct {
	ctx context.Context //nolint:containedctx // scoped to a single Update call
	tx  *sql.Tx
}

func (t *sqlTxn) PutTipHash(hash *chainhash.Hash) error {
	return setState(t.ctx, t.tx, stateKeyTip, hash.CloneBytes())
}

func (t *sqlTxn) PutUTXOTipHash(hash *chainhash.Hash) error {
	return setState(t.ctx, t.tx, stateKeyUTXOTip, hash.CloneBytes())
}

func (t *sqlTxn) PutBlock(block *model.Block) error {
	return storeBlock(t.ctx, t.tx, block)
}

func (t *sqlTxn) GetUTXOEntry(txID *chainhash.Hash) (model.UnspentOutputs, error) {
	return getUTXOEntry(t.ctx, t.tx, txID)
}

func (t *sqlTxn) PutUTXOEntry(txID *chainhash.Hash, outputs model.UnspentOutputs) error {
	data, err := outputs.Bytes()
	if err != nil {
		return errors.NewStorageError("failed to serialize utxo entry %s", util.HashToHex(*txID), err)
	}

	q := `
		INSERT INTO utxos (tx_id, data)
		VALUES ($1, $2)
		ON CONFLICT (tx_id) DO UPDATE
		SET data = excluded.data
	`

	if _, err = t.tx.ExecContext(t.ctx, q, txID[:], data); err != nil {
		return errors.NewStorageError("failed to write utxo entry %s", util.HashToHex(*txID), err)
	}

	return nil
}

func (t *sqlTxn) DeleteUTXOEntry(txID *chainhash.Hash) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM utxos WHERE tx_id = $1`, txID[:]); err != nil {
		return errors.NewStorageError("failed to delete utxo entry %s", util.HashToHex(*txID), err)
	}

	return nil
}

func (t *sqlTxn) ClearUTXOIndex() error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM utxos`); err != nil {
		return errors.NewStorageError("failed to clear utxo index", err)
	}

	return nil
}
