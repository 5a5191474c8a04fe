package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/ordishs/gocore"
)

func (s *SQL) GetTipHash(ctx context.Context) (*chainhash.Hash, error) {
	return s.getStateHash(ctx, stateKeyTip)
}

func (s *SQL) GetUTXOTipHash(ctx context.Context) (*chainhash.Hash, error) {
	return s.getStateHash(ctx, stateKeyUTXOTip)
}

func (s *SQL) getStateHash(ctx context.Context, key string) (*chainhash.Hash, error) {
	data, err := s.GetState(ctx, key)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeHash([]byte(key), data, data != nil)
}

// GetState returns nil, nil when key has never been set.
func (s *SQL) GetState(ctx context.Context, key string) ([]byte, error) {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat("GetState").AddTime(start)
	}()

	q := `
		SELECT data
		FROM state
		WHERE key = $1
	`

	var data []byte

	if err := s.db.QueryRowContext(ctx, q, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, errors.NewStorageUnavailableError("failed to read state %s", key, err)
	}

	return data, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setState(ctx context.Context, db execer, key string, data []byte) error {
	q := `
		INSERT INTO state (key, data)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := db.ExecContext(ctx, q, key, data); err != nil {
		return errors.NewStorageError("failed to write state %s", key, err)
	}

	return nil
}
