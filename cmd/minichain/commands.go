package main

import (
	"fmt"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/util"
	"github.com/bsv-blockchain/minichain/wallet"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func createWallet(_ *cli.Context) error {
	wallets, err := wallet.LoadWallets(settings.NewSettings().Wallet.File)
	if err != nil {
		return err
	}

	address, err := wallets.CreateWallet()
	if err != nil {
		return err
	}

	if err = wallets.Save(); err != nil {
		return err
	}

	fmt.Printf("Your new address: %s\n", address)

	return nil
}

func listAddresses(_ *cli.Context) error {
	wallets, err := wallet.LoadWallets(settings.NewSettings().Wallet.File)
	if err != nil {
		return err
	}

	for _, address := range wallets.GetAddresses() {
		fmt.Println(address)
	}

	return nil
}

func createBlockchain(c *cli.Context) error {
	address := c.String("address")
	if !wallet.ValidateAddress(address) {
		return errors.NewInvalidAddressError("address %q is not valid", address)
	}

	n, err := openNode()
	if err != nil {
		return err
	}

	chain, err := blockchain.New(c.Context, n.logger, n.settings, n.handle, address, n.options()...)
	if err != nil {
		n.close(c.Context, nil)
		return err
	}

	defer n.close(c.Context, chain)

	if _, err = n.utxos.Sync(c.Context, chain); err != nil {
		return err
	}

	fmt.Printf("Done! Tip %s at height %d\n", util.HashToHex(chain.TipHash()), chain.Height())

	return nil
}

func getBalance(c *cli.Context) error {
	address := c.String("address")
	if !wallet.ValidateAddress(address) {
		return errors.NewInvalidAddressError("address %q is not valid", address)
	}

	n, err := openNode()
	if err != nil {
		return err
	}

	chain, err := n.openChain(c.Context, true)
	defer n.close(c.Context, chain)

	if err != nil {
		return err
	}

	balance, err := n.utxos.GetBalance(c.Context, address)
	if err != nil {
		return err
	}

	fmt.Printf("Balance of '%s': %d\n", address, balance)

	return nil
}

func send(c *cli.Context) error {
	from, to, amount := c.String("from"), c.String("to"), c.Int64("amount")

	if !wallet.ValidateAddress(from) {
		return errors.NewInvalidAddressError("sender address %q is not valid", from)
	}

	if !wallet.ValidateAddress(to) {
		return errors.NewInvalidAddressError("recipient address %q is not valid", to)
	}

	n, err := openNode()
	if err != nil {
		return err
	}

	wallets, err := wallet.LoadWallets(n.settings.Wallet.File)
	if err != nil {
		n.close(c.Context, nil)
		return err
	}

	sender, err := wallets.GetWallet(from)
	if err != nil {
		n.close(c.Context, nil)
		return err
	}

	chain, err := n.openChain(c.Context, true)
	defer n.close(c.Context, chain)

	if err != nil {
		return err
	}

	tx, err := chain.NewUTXOTransaction(c.Context, sender, to, amount, n.utxos)
	if err != nil {
		return err
	}

	txs := []*model.Transaction{tx}

	if c.Bool("mine-reward") {
		coinbase, err := model.NewCoinbaseTransaction(from, n.settings.Coinbase.ArbitraryText, n.settings.Coinbase.Subsidy)
		if err != nil {
			return err
		}

		txs = append([]*model.Transaction{coinbase}, txs...)
	}

	block, err := chain.MineBlock(c.Context, txs)
	if err != nil {
		return err
	}

	fmt.Printf("Success! Transaction %s mined in block %s at height %d\n", util.HashToHex(tx.ID), block.HashHex(), block.Height)

	return nil
}

func printChain(c *cli.Context) error {
	n, err := openNode()
	if err != nil {
		return err
	}

	chain, err := n.openChain(c.Context, false)
	defer n.close(c.Context, chain)

	if err != nil {
		return err
	}

	asJSON := c.Bool("json")

	for block, err := range chain.Blocks(c.Context) {
		if err != nil {
			return err
		}

		if asJSON {
			v, err := newBlockView(block)
			if err != nil {
				return err
			}

			b, err := json.Marshal(v)
			if err != nil {
				return errors.NewProcessingError("failed to encode block %s", block.HashHex(), err)
			}

			fmt.Println(string(b))

			continue
		}

		pow, err := model.NewProofOfWork(block)
		if err != nil {
			return err
		}

		fmt.Println(block.String())
		fmt.Printf("PoW: %t\n\n", pow.Validate())
	}

	return nil
}

func getTransaction(c *cli.Context) error {
	txID, err := util.HashFromHex(c.String("id"))
	if err != nil {
		return errors.NewInvalidArgumentError("transaction id %q is not valid", c.String("id"), err)
	}

	n, err := openNode()
	if err != nil {
		return err
	}

	chain, err := n.openChain(c.Context, false)
	defer n.close(c.Context, chain)

	if err != nil {
		return err
	}

	tx, err := chain.FindTransaction(c.Context, *txID)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(newTxView(tx), "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode transaction %s", util.HashToHex(*txID), err)
	}

	fmt.Println(string(b))

	return nil
}

func reindexUTXO(c *cli.Context) error {
	n, err := openNode()
	if err != nil {
		return err
	}

	chain, err := n.openChain(c.Context, false)
	defer n.close(c.Context, chain)

	if err != nil {
		return err
	}

	if err = n.utxos.Reindex(c.Context, chain); err != nil {
		return err
	}

	count, err := n.utxos.CountTransactions(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)

	return nil
}

func status(c *cli.Context) error {
	n, err := openNode()
	if err != nil {
		return err
	}

	httpStatus, details, err := n.handle.Store().Health(c.Context, false)
	if err != nil {
		n.close(c.Context, nil)
		return err
	}

	fmt.Printf("Store:       %s (%d %s)\n", n.settings.Blockchain.StoreURL.Redacted(), httpStatus, details)

	chain, err := n.openChain(c.Context, false)
	defer n.close(c.Context, chain)

	if err != nil {
		if errors.Is(err, errors.ErrChainNotInitialized) {
			fmt.Println("Chain:       not initialized")
			return nil
		}

		return err
	}

	fmt.Printf("Tip:         %s\n", util.HashToHex(chain.TipHash()))
	fmt.Printf("Height:      %d\n", chain.Height())
	fmt.Printf("Difficulty:  %d bits\n", chain.DifficultyBits())
	fmt.Printf("State:       %s\n", chain.State())

	utxoTip, err := n.handle.Store().GetUTXOTipHash(c.Context)

	switch {
	case err == nil:
		fmt.Printf("UTXO tip:    %s (in sync: %t)\n", util.HashToHex(*utxoTip), *utxoTip == chain.TipHash())
	case errors.Is(err, errors.ErrNotFound):
		fmt.Println("UTXO tip:    none, run reindexutxo")
	default:
		return err
	}

	count, err := n.utxos.CountTransactions(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("UTXO txs:    %d\n", count)

	return nil
}
