// Command minichain manages wallets and a local proof-of-work chain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "minichain"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called above
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    progname,
		Usage:   "a minimal UTXO ledger with proof-of-work mining",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "createwallet",
				Usage:  "Generate a new key pair and save it to the wallet file",
				Action: createWallet,
			},
			{
				Name:   "listaddresses",
				Usage:  "List the addresses in the wallet file",
				Action: listAddresses,
			},
			{
				Name:   "createblockchain",
				Usage:  "Create a chain and send the genesis reward to ADDRESS",
				Action: createBlockchain,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "address receiving the genesis reward",
						Required: true,
					},
				},
			},
			{
				Name:   "getbalance",
				Usage:  "Get the balance of ADDRESS",
				Action: getBalance,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "address to query",
						Required: true,
					},
				},
			},
			{
				Name:   "send",
				Usage:  "Send AMOUNT of coins from FROM to TO and mine a block holding the transaction",
				Action: send,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "sending address, must be in the wallet file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "receiving address",
						Required: true,
					},
					&cli.Int64Flag{
						Name:     "amount",
						Usage:    "amount to send",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "mine-reward",
						Usage: "include a coinbase paying the block reward to the sender",
						Value: true,
					},
				},
			},
			{
				Name:   "printchain",
				Usage:  "Print all blocks, tip first",
				Action: printChain,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print one JSON document per block",
					},
				},
			},
			{
				Name:   "gettransaction",
				Usage:  "Find a mined transaction by ID and print it as JSON",
				Action: getTransaction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "transaction ID in hex, as printed by send and printchain",
						Required: true,
					},
				},
			},
			{
				Name:   "reindexutxo",
				Usage:  "Rebuild the UTXO index from the chain",
				Action: reindexUTXO,
			},
			{
				Name:   "status",
				Usage:  "Show store health, chain tip and UTXO index state",
				Action: status,
			},
		},
	}
}
