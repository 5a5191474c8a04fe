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

func (s *SQL) GetBlock(ctx context.Context, hash *chainhash.Hash) (*model.Block, error) {
	ctx, _, deferFn := tracing.StartTracing(ctx, "sql:GetBlock")
	defer deferFn()

	q := `
		SELECT data
		FROM blocks
		WHERE hash = $1
	`

	var data []byte

	if err := s.db.QueryRowContext(ctx, q, hash[:]).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewBlockNotFoundError("block %s not found", util.HashToHex(*hash))
		}

		return nil, errors.NewStorageUnavailableError("failed to read block %s", util.HashToHex(*hash), err)
	}

	return blockchain.DecodeBlock(hash, data, true)
}

func storeBlock(ctx context.Context, db execer, block *model.Block) error {
	data, err := block.Bytes()
	if err != nil {
		return errors.NewStorageError("failed to serialize block %s", block.HashHex(), err)
	}

	q := `
		INSERT INTO blocks (hash, previous_hash, height, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hash) DO NOTHING
	`

	if _, err = db.ExecContext(ctx, q, block.Hash[:], block.PrevBlockHash[:], int64(block.Height), data); err != nil {
		return errors.NewStorageError("failed to store block %s", block.HashHex(), err)
	}

	return nil
}
