package settings

import (
	"net/url"
	"time"
)

type BlockchainSettings struct {
	StoreURL          *url.URL
	DifficultyBits    uint32
	VerifyConcurrency int
	BlockCacheSize    int
	BlockCacheTTL     time.Duration
	BloomFPRate       float64
}

type CoinbaseSettings struct {
	Subsidy       int64
	ArbitraryText string
}

type UtxoSetSettings struct {
	SyncOnStart bool
}

type WalletSettings struct {
	File string
}

type PrometheusSettings struct {
	ListenAddress string
	Endpoint      string
}

type Settings struct {
	ClientName string
	DataFolder string
	LogLevel   string
	LoggerType string
	Blockchain BlockchainSettings
	Coinbase   CoinbaseSettings
	UtxoSet    UtxoSetSettings
	Wallet     WalletSettings
	Prometheus PrometheusSettings
}
