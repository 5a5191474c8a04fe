// Package settings loads minichain configuration from settings.conf, settings_local.conf and
// the environment through gocore.
package settings

import (
	"net/url"
	"path/filepath"
	"time"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

const (
	DefaultDifficultyBits = 20
	DefaultSubsidy        = 10
)

func NewSettings() *Settings {
	dataFolder := getString("dataFolder", "data")

	difficultyBits, err := safeconversion.IntToUint32(getInt("pow_difficultyBits", DefaultDifficultyBits))
	if err != nil {
		panic(err)
	}

	walletFile := getString("wallet_file", "wallets.json")
	if !filepath.IsAbs(walletFile) {
		walletFile = filepath.Join(dataFolder, walletFile)
	}

	return &Settings{
		ClientName: getString("clientName", "minichain"),
		DataFolder: dataFolder,
		LogLevel:   getString("logLevel", "INFO"),
		LoggerType: getString("logger", "zerolog"),
		Blockchain: BlockchainSettings{
			StoreURL:          getURL("blockchain_store", "leveldb://./data/blockchain"),
			DifficultyBits:    difficultyBits,
			VerifyConcurrency: getInt("blockchain_verifyConcurrency", 8),
			BlockCacheSize:    getInt("blockchain_blockCacheSize", 1024),
			BlockCacheTTL:     getDuration("blockchain_blockCacheTTL", 10*time.Minute),
			BloomFPRate:       getFloat64("blockchain_bloomFPRate", 0.001),
		},
		Coinbase: CoinbaseSettings{
			Subsidy:       int64(getInt("coinbase_subsidy", DefaultSubsidy)),
			ArbitraryText: getString("coinbase_arbitrary_text", ""),
		},
		UtxoSet: UtxoSetSettings{
			SyncOnStart: getBool("utxoset_syncOnStart", true),
		},
		Wallet: WalletSettings{
			File: walletFile,
		},
		Prometheus: PrometheusSettings{
			ListenAddress: getString("prometheusListenAddress", ""),
			Endpoint:      getString("prometheusEndpoint", "/metrics"),
		},
	}
}

// NewTestSettings returns settings suitable for unit tests: an in-memory store and a low
// difficulty so blocks mine in milliseconds. Nothing is read from settings.conf.
func NewTestSettings() *Settings {
	storeURL, _ := url.Parse("memory:///")

	return &Settings{
		ClientName: "minichain-test",
		DataFolder: "data",
		LogLevel:   "DEBUG",
		LoggerType: "zerolog",
		Blockchain: BlockchainSettings{
			StoreURL:          storeURL,
			DifficultyBits:    8,
			VerifyConcurrency: 4,
			BlockCacheSize:    64,
			BlockCacheTTL:     time.Minute,
			BloomFPRate:       0.001,
		},
		Coinbase: CoinbaseSettings{
			Subsidy: DefaultSubsidy,
		},
		UtxoSet: UtxoSetSettings{
			SyncOnStart: true,
		},
		Wallet: WalletSettings{
			File: "wallets.json",
		},
		Prometheus: PrometheusSettings{
			Endpoint: "/metrics",
		},
	}
}
