package main

import (
	"context"
	"net/http"
	"time"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/services/utxoset"
	"github.com/bsv-blockchain/minichain/settings"
	blockchain_store "github.com/bsv-blockchain/minichain/stores/blockchain"
	"github.com/bsv-blockchain/minichain/stores/blockchain/factory"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// node holds everything a command needs to work on the chain.
type node struct {
	logger   ulogger.Logger
	settings *settings.Settings
	handle   *blockchain_store.Handle
	utxos    *utxoset.UTXOSet
	server   *http.Server
}

func newLogger(tSettings *settings.Settings) ulogger.Logger {
	return ulogger.New(progname,
		ulogger.WithLevel(tSettings.LogLevel),
		ulogger.WithLoggerType(tSettings.LoggerType),
	)
}

func openNode() (*node, error) {
	tSettings := settings.NewSettings()
	logger := newLogger(tSettings)

	store, err := factory.NewStore(logger, tSettings.Blockchain.StoreURL, tSettings)
	if err != nil {
		return nil, err
	}

	handle := blockchain_store.NewHandle(store)

	n := &node{
		logger:   logger,
		settings: tSettings,
		handle:   handle,
		utxos:    utxoset.New(logger, handle),
	}

	n.startPrometheus()

	return n, nil
}

func (n *node) startPrometheus() {
	if n.settings.Prometheus.ListenAddress == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(n.settings.Prometheus.Endpoint, promhttp.Handler())

	n.server = &http.Server{
		Addr:              n.settings.Prometheus.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		n.logger.Infof("Starting prometheus endpoint on http://%s%s", n.settings.Prometheus.ListenAddress, n.settings.Prometheus.Endpoint)

		if err := n.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Errorf("prometheus endpoint stopped: %v", err)
		}
	}()
}

func (n *node) options() []blockchain.Option {
	return []blockchain.Option{blockchain.WithBlockApplier(n.utxos)}
}

// openChain loads the existing chain and, unless disabled, brings the UTXO index up to its tip.
func (n *node) openChain(ctx context.Context, sync bool) (*blockchain.Blockchain, error) {
	chain, err := blockchain.Open(ctx, n.logger, n.settings, n.handle, n.options()...)
	if err != nil {
		return nil, err
	}

	if sync && n.settings.UtxoSet.SyncOnStart {
		if _, err = n.utxos.Sync(ctx, chain); err != nil {
			return nil, err
		}
	}

	return chain, nil
}

func (n *node) close(ctx context.Context, chain *blockchain.Blockchain) {
	if chain != nil {
		if err := chain.Stop(ctx); err != nil {
			n.logger.Warnf("failed to stop chain: %v", err)
		}
	}

	if n.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_ = n.server.Shutdown(shutdownCtx)
	}

	if err := n.handle.Close(context.WithoutCancel(ctx)); err != nil {
		n.logger.Errorf("failed to close store: %v", err)
	}
}
