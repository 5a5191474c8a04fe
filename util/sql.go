package util

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/google/uuid"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

type SQLEngine string

const (
	Postgres     SQLEngine = "postgres"
	Sqlite       SQLEngine = "sqlite"
	SqliteMemory SQLEngine = "sqlitememory"
)

func InitSQLDB(logger ulogger.Logger, storeURL *url.URL, dataFolder string) (*sql.DB, error) {
	switch storeURL.Scheme {
	case "postgres":
		return InitPostgresDB(logger, storeURL)
	case "sqlite", "sqlitememory":
		return InitSQLiteDB(logger, storeURL, dataFolder)
	}

	return nil, errors.NewConfigurationError("db: unknown scheme: %s", storeURL.Scheme)
}

func InitPostgresDB(logger ulogger.Logger, storeURL *url.URL) (*sql.DB, error) {
	dbHost := storeURL.Hostname()
	port := storeURL.Port()
	dbPort, _ := strconv.Atoi(port)

	if dbPort == 0 {
		dbPort = 5432
	}

	dbName := ""
	if len(storeURL.Path) > 1 {
		dbName = storeURL.Path[1:]
	}

	dbUser := ""
	dbPassword := ""

	if storeURL.User != nil {
		dbUser = storeURL.User.Username()
		dbPassword, _ = storeURL.User.Password()
	}

	// Default sslmode to "disable"
	sslMode := "disable"

	queryParams := storeURL.Query()
	if val, ok := queryParams["sslmode"]; ok && len(val) > 0 {
		sslMode = val[0]
	}

	dbInfo := fmt.Sprintf("user=%s password=%s dbname=%s sslmode=%s host=%s port=%d", dbUser, dbPassword, dbName, sslMode, dbHost, dbPort)

	db, err := sql.Open(string(Postgres), dbInfo)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open postgres DB", err)
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageUnavailableError("failed to reach postgres DB %s:%d", dbHost, dbPort, err)
	}

	logger.Infof("Using postgres DB: %s@%s:%d/%s", dbUser, dbHost, dbPort, dbName)

	return db, nil
}

func InitSQLiteDB(logger ulogger.Logger, storeURL *url.URL, dataFolder string) (*sql.DB, error) {
	var (
		filename string
		err      error
	)

	if storeURL.Scheme == string(SqliteMemory) {
		filename = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if err = os.MkdirAll(dataFolder, 0o755); err != nil {
			return nil, errors.NewStorageUnavailableError("failed to create data folder %s", dataFolder, err)
		}

		dbName := "blockchain"
		if len(storeURL.Path) > 1 {
			dbName = storeURL.Path[1:]
		}

		filename, err = filepath.Abs(path.Join(dataFolder, fmt.Sprintf("%s.db", dbName)))
		if err != nil {
			return nil, errors.NewStorageUnavailableError("failed to get absolute path for sqlite DB", err)
		}

		/* Don't be tempted by a large busy_timeout. Just masks a bigger problem.
		Fail fast. This is 'dev mode' sqlite after all */
		filename = fmt.Sprintf("%s?cache=shared&_pragma=busy_timeout=5000&_pragma=journal_mode=WAL", filename)
	}

	logger.Infof("Using sqlite DB: %s", filename)

	db, err := sql.Open(string(Sqlite), filename)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open sqlite DB", err)
	}

	// a single connection serializes writers and keeps the shared in-memory DB alive
	db.SetMaxOpenConns(1)

	return db, nil
}
