// Package sql is the relational store backend for sqlite, in-memory sqlite and postgres.
package sql

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/ordishs/gocore"
)

const (
	stateKeyTip     = "tip"
	stateKeyUTXOTip = "utxo_tip"
)

var stat = gocore.NewStat("blockchain_sql")

type SQL struct {
	db     *sql.DB
	engine util.SQLEngine
	logger ulogger.Logger
}

func New(logger ulogger.Logger, storeURL *url.URL, dataFolder string) (*SQL, error) {
	logger = logger.New("bcsql")

	db, err := util.InitSQLDB(logger, storeURL, dataFolder)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to init sql db", err)
	}

	switch util.SQLEngine(storeURL.Scheme) {
	case util.Postgres:
		if err = createPostgresSchema(db); err != nil {
			return nil, errors.NewStorageUnavailableError("failed to create postgres schema", err)
		}

	case util.Sqlite, util.SqliteMemory:
		if err = createSqliteSchema(db); err != nil {
			return nil, errors.NewStorageUnavailableError("failed to create sqlite schema", err)
		}

	default:
		_ = db.Close()
		return nil, errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	return &SQL{
		db:     db,
		engine: util.SQLEngine(storeURL.Scheme),
		logger: logger,
	}, nil
}

func (s *SQL) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "SQL Store", nil
	}

	if err := s.db.PingContext(ctx); err != nil {
		return http.StatusServiceUnavailable, "SQL Store: " + string(s.engine), errors.NewStorageUnavailableError("sql ping failed", err)
	}

	return http.StatusOK, "SQL Store: " + string(s.engine), nil
}

func (s *SQL) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return errors.NewStorageError("failed to close sql db", err)
	}

	return nil
}

func createPostgresSchema(db *sql.DB) error {
	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS state (
	    key            VARCHAR(32) PRIMARY KEY
	    ,data          BYTEA NOT NULL
        ,inserted_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        ,updated_at    TIMESTAMPTZ NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create state table", err)
	}

	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS blocks (
	    id              BIGSERIAL PRIMARY KEY
	    ,hash           BYTEA NOT NULL
	    ,previous_hash  BYTEA NOT NULL
	    ,height         BIGINT NOT NULL
	    ,data           BYTEA NOT NULL
    	,inserted_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create blocks table", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_blocks_hash ON blocks (hash);`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create ux_blocks_hash index", err)
	}

	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS utxos (
	    tx_id          BYTEA PRIMARY KEY
	    ,data          BYTEA NOT NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create utxos table", err)
	}

	return nil
}

func createSqliteSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS state (
		 key            VARCHAR(32) PRIMARY KEY
	    ,data           BLOB NOT NULL
        ,inserted_at    TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        ,updated_at     TEXT NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create state table", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blocks (
		 id             INTEGER PRIMARY KEY AUTOINCREMENT
	    ,hash           BLOB NOT NULL
	    ,previous_hash  BLOB NOT NULL
	    ,height         BIGINT NOT NULL
	    ,data           BLOB NOT NULL
        ,inserted_at    TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create blocks table", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_blocks_hash ON blocks (hash);`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create ux_blocks_hash index", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS utxos (
		 tx_id          BLOB PRIMARY KEY
	    ,data           BLOB NOT NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create utxos table", err)
	}

	return nil
}
