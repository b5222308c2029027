package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	klog "github.com/privia-labs/privia/internal/log"
)

const keystoreVersion = 1

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidName    = errors.New("invalid wallet name")
	ErrUnknownAccount = errors.New("account not derived in wallet")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// keystoreFile is the on-disk JSON form of a wallet.
type keystoreFile struct {
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	EncryptedSeed []byte         `json:"encrypted_seed"`
	Accounts      []AccountEntry `json:"accounts"`
	NextIndex     uint32         `json:"next_index"`
}

// AccountEntry records an identity derived from the wallet seed. Index is
// the last path component under account 0.
type AccountEntry struct {
	Index   uint32 `json:"index"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Keystore stores encrypted wallet seeds, one file per wallet.
type Keystore struct {
	path   string
	params EncryptionParams
}

// NewKeystore opens a keystore directory, creating it if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path, params: DefaultParams()}, nil
}

// SetParams changes the Argon2id parameters used for new wallets.
func (ks *Keystore) SetParams(p EncryptionParams) {
	ks.params = p
}

func (ks *Keystore) walletPath(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(ks.path, name+".wallet"), nil
}

// Create stores seed under name, sealed with password.
func (ks *Keystore) Create(name string, seed, password []byte) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}
	if len(seed) != SeedSize {
		return fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}

	sealed, err := Encrypt(seed, password, ks.params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	kf := keystoreFile{
		Version:       keystoreVersion,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: sealed,
		Accounts:      []AccountEntry{},
	}
	if err := writeKeystore(path, &kf); err != nil {
		return err
	}
	klog.Wallet.Info().Str("wallet", name).Msg("Wallet created")
	return nil
}

// Load decrypts the seed of a wallet.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return nil, err
	}
	kf, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("wallet %q: %w", name, err)
	}
	return seed, nil
}

// AddAccount records a derived identity. Re-adding the same index with the
// same address is a no-op.
func (ks *Keystore) AddAccount(name string, acct AccountEntry) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	kf, err := readKeystore(path)
	if err != nil {
		return err
	}
	for _, existing := range kf.Accounts {
		if existing.Index == acct.Index {
			if existing.Address == acct.Address {
				return nil
			}
			return fmt.Errorf("index %d already holds %s", acct.Index, existing.Address)
		}
	}
	kf.Accounts = append(kf.Accounts, acct)
	if acct.Index >= kf.NextIndex {
		kf.NextIndex = acct.Index + 1
	}
	return writeKeystore(path, kf)
}

// DeriveNext derives the next unused identity, records it and returns it.
func (ks *Keystore) DeriveNext(name string, password []byte, label string) (AccountEntry, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return AccountEntry{}, err
	}
	kf, err := readKeystore(path)
	if err != nil {
		return AccountEntry{}, err
	}
	key, err := ks.identity(name, password, kf.NextIndex)
	if err != nil {
		return AccountEntry{}, err
	}
	entry := AccountEntry{Index: kf.NextIndex, Name: label, Address: key.Address().String()}
	if err := ks.AddAccount(name, entry); err != nil {
		return AccountEntry{}, err
	}
	klog.Wallet.Debug().Str("wallet", name).Uint32("index", entry.Index).Str("address", entry.Address).Msg("Derived identity")
	return entry, nil
}

// Signer returns the key of a recorded identity.
func (ks *Keystore) Signer(name string, password []byte, index uint32) (*HDKey, error) {
	accounts, err := ks.ListAccounts(name)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Index == index {
			return ks.identity(name, password, index)
		}
	}
	return nil, fmt.Errorf("%w: index %d", ErrUnknownAccount, index)
}

func (ks *Keystore) identity(name string, password []byte, index uint32) (*HDKey, error) {
	seed, err := ks.Load(name, password)
	if err != nil {
		return nil, err
	}
	defer zero(seed)
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	return master.Identity(0, index)
}

// ListAccounts returns the identities recorded in a wallet.
func (ks *Keystore) ListAccounts(name string) ([]AccountEntry, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return nil, err
	}
	kf, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the wallet names in the keystore.
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
		n := e.Name()
		if ext := filepath.Ext(n); ext == ".wallet" {
			names = append(names, n[:len(n)-len(ext)])
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
	klog.Wallet.Info().Str("wallet", name).Msg("Wallet deleted")
	return nil
}

func writeKeystore(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return os.Rename(tmp, path)
}

func readKeystore(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
