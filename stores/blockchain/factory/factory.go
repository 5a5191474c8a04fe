// Package factory opens a blockchain store from its URL.
package factory

import (
	"net/url"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/stores/blockchain/leveldb"
	"github.com/bsv-blockchain/minichain/stores/blockchain/memory"
	"github.com/bsv-blockchain/minichain/stores/blockchain/sql"
	"github.com/bsv-blockchain/minichain/ulogger"
)

// NewStore dispatches on the URL scheme: memory, leveldb, sqlite, sqlitememory or postgres.
// A backend that cannot be opened yields errors.ErrStorageUnavailable.
func NewStore(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (blockchain.Store, error) {
	if storeURL == nil {
		return nil, errors.NewConfigurationError("no blockchain store url configured")
	}

	switch storeURL.Scheme {
	case "memory":
		return memory.New(), nil

	case "leveldb":
		store, err := leveldb.New(logger, storeURL)
		if err != nil {
			return nil, err
		}

		return store, nil

	case "postgres":
		fallthrough
	case "sqlitememory":
		fallthrough
	case "sqlite":
		store, err := sql.New(logger, storeURL, tSettings.DataFolder)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	return nil, errors.NewConfigurationError("unknown blockchain store scheme: %s", storeURL.Scheme)
}
