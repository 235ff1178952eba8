package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Klingon-tech/starnotary/internal/log"
	"github.com/Klingon-tech/starnotary/pkg/crypto"
)

const (
	walletVersion = 1
	walletExt     = ".wallet"
)

// walletAAD binds every sealed mnemonic to this file format.
var walletAAD = []byte("starnotary-wallet-v1")

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
)

// walletFile is the on-disk JSON format for an encrypted wallet.
type walletFile struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Mnemonic  *Sealed        `json:"mnemonic"`
	Accounts  []AccountEntry `json:"accounts"`
}

// AccountEntry records a derived owner address.
type AccountEntry struct {
	Index   uint32 `json:"index"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Keystore manages encrypted wallets in one directory.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid wallet name %q", name)
	}
	return filepath.Join(ks.path, name+walletExt), nil
}

// Create stores mnemonic under name, encrypted with password, and records
// the first owner address. It returns that account.
func (ks *Keystore) Create(name, mnemonic string, password []byte, params EncryptionParams) (AccountEntry, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return AccountEntry{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return AccountEntry{}, fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	mnemonic = NormalizeMnemonic(mnemonic)
	master, err := masterFromMnemonic(mnemonic)
	if err != nil {
		return AccountEntry{}, err
	}
	first, err := master.DeriveOwner(0, 0)
	if err != nil {
		return AccountEntry{}, err
	}

	sealed, err := Seal([]byte(mnemonic), password, walletAAD, params)
	if err != nil {
		return AccountEntry{}, fmt.Errorf("encrypt mnemonic: %w", err)
	}

	acct := AccountEntry{Index: 0, Name: "default", Address: first.Address().String()}
	wf := walletFile{
		Version:   walletVersion,
		CreatedAt: time.Now().UTC(),
		Mnemonic:  sealed,
		Accounts:  []AccountEntry{acct},
	}
	if err := writeWalletFile(path, &wf); err != nil {
		return AccountEntry{}, err
	}

	log.Wallet.Info().Str("wallet", name).Str("address", acct.Address).Msg("Wallet created")
	return acct, nil
}

// Mnemonic decrypts and returns the wallet's recovery phrase.
func (ks *Keystore) Mnemonic(name string, password []byte) (string, error) {
	wf, _, err := ks.read(name)
	if err != nil {
		return "", err
	}
	plain, err := wf.Mnemonic.Open(password, walletAAD)
	if err != nil {
		return "", fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	return string(plain), nil
}

// Open decrypts the wallet and returns its key tree.
func (ks *Keystore) Open(name string, password []byte) (*Wallet, error) {
	mnemonic, err := ks.Mnemonic(name, password)
	if err != nil {
		return nil, err
	}
	master, err := masterFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return &Wallet{name: name, master: master}, nil
}

// NewAccount derives the next owner address and records it under label.
func (ks *Keystore) NewAccount(name string, password []byte, label string) (AccountEntry, error) {
	w, err := ks.Open(name, password)
	if err != nil {
		return AccountEntry{}, err
	}
	wf, path, err := ks.read(name)
	if err != nil {
		return AccountEntry{}, err
	}

	var next uint32
	for _, a := range wf.Accounts {
		if a.Index >= next {
			next = a.Index + 1
		}
	}
	key, err := w.master.DeriveOwner(0, next)
	if err != nil {
		return AccountEntry{}, err
	}

	acct := AccountEntry{Index: next, Name: label, Address: key.Address().String()}
	wf.Accounts = append(wf.Accounts, acct)
	if err := writeWalletFile(path, wf); err != nil {
		return AccountEntry{}, err
	}
	return acct, nil
}

// ListAccounts returns the account entries for a wallet.
func (ks *Keystore) ListAccounts(name string) ([]AccountEntry, error) {
	wf, _, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	return wf.Accounts, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n := e.Name(); filepath.Ext(n) == walletExt {
			names = append(names, strings.TrimSuffix(n, walletExt))
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return err
	}
	return nil
}

func (ks *Keystore) read(name string) (*walletFile, string, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return nil, "", fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, "", fmt.Errorf("parse wallet: %w", err)
	}
	if wf.Version != walletVersion {
		return nil, "", fmt.Errorf("unsupported wallet version: %d", wf.Version)
	}
	if wf.Mnemonic == nil {
		return nil, "", fmt.Errorf("wallet %q has no mnemonic", name)
	}
	return &wf, path, nil
}

func writeWalletFile(path string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func masterFromMnemonic(mnemonic string) (*HDKey, error) {
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer zero(seed)
	return NewMasterKey(seed)
}

// Wallet is an opened wallet.
type Wallet struct {
	name   string
	master *HDKey
}

// Name returns the wallet's keystore name.
func (w *Wallet) Name() string {
	return w.name
}

// Signer returns the signer for the owner key at index.
func (w *Wallet) Signer(index uint32) (*crypto.PrivateKey, error) {
	key, err := w.master.DeriveOwner(0, index)
	if err != nil {
		return nil, err
	}
	return key.Signer()
}
