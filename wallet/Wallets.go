package wallet

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bsv-blockchain/minichain/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type walletFile struct {
	Wallets map[string]string `json:"wallets"` // address -> hex private key
}

// Wallets is the set of wallets persisted in one file.
type Wallets struct {
	mu      sync.RWMutex
	file    string
	wallets map[string]*Wallet
}

// LoadWallets reads file. A missing file yields an empty set.
func LoadWallets(file string) (*Wallets, error) {
	ws := &Wallets{
		file:    file,
		wallets: make(map[string]*Wallet),
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return ws, nil
		}

		return nil, errors.NewStorageUnavailableError("failed to read wallet file %s", file, err)
	}

	var wf walletFile
	if err = json.Unmarshal(data, &wf); err != nil {
		return nil, errors.NewProcessingError("failed to decode wallet file %s", file, err)
	}

	for address, keyHex := range wf.Wallets {
		keyBytes, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, errors.NewProcessingError("invalid private key for %s", address, err)
		}

		w, err := FromPrivateKeyBytes(keyBytes)
		if err != nil {
			return nil, err
		}

		if w.Address() != address {
			return nil, errors.NewProcessingError("wallet file entry %s does not match its key", address)
		}

		ws.wallets[address] = w
	}

	return ws, nil
}

// CreateWallet generates a wallet, adds it to the set and returns its address. The set is not
// saved until Save is called.
func (ws *Wallets) CreateWallet() (string, error) {
	w, err := New()
	if err != nil {
		return "", err
	}

	address := w.Address()

	ws.mu.Lock()
	ws.wallets[address] = w
	ws.mu.Unlock()

	return address, nil
}

func (ws *Wallets) GetAddresses() []string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	addresses := make([]string, 0, len(ws.wallets))
	for address := range ws.wallets {
		addresses = append(addresses, address)
	}

	sort.Strings(addresses)

	return addresses
}

func (ws *Wallets) GetWallet(address string) (*Wallet, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	w, ok := ws.wallets[address]
	if !ok {
		return nil, errors.NewNotFoundError("no wallet for address %s", address)
	}

	return w, nil
}

// Save writes the set to its file with owner-only permissions.
func (ws *Wallets) Save() error {
	ws.mu.RLock()

	wf := walletFile{Wallets: make(map[string]string, len(ws.wallets))}
	for address, w := range ws.wallets {
		wf.Wallets[address] = hex.EncodeToString(w.PrivateKey.Serialize())
	}

	ws.mu.RUnlock()

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode wallets", err)
	}

	if dir := filepath.Dir(ws.file); dir != "" {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return errors.NewStorageError("failed to create wallet folder %s", dir, err)
		}
	}

	if err = os.WriteFile(ws.file, data, 0o600); err != nil {
		return errors.NewStorageError("failed to write wallet file %s", ws.file, err)
	}

	return nil
}
