package wallet

import (
	"fmt"

	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// Derivation path: m/44'/CoinTypePrivia'/account'/0/index. Ledger
// identities have no change chain; the fourth level is always 0.
const (
	PurposeBIP44   = bip32.FirstHardenedChild + 44
	CoinTypePrivia = bip32.FirstHardenedChild + 7741
	externalChain  = 0
)

// HDKey is a BIP-32 key. Private keys implement crypto.Signer.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// Child derives the child at index. Add bip32.FirstHardenedChild for a
// hardened child.
func (k *HDKey) Child(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// Path derives along indices.
func (k *HDKey) Path(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.Child(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// Identity derives the key of identity index under account.
func (k *HDKey) Identity(account, index uint32) (*HDKey, error) {
	return k.Path(
		PurposeBIP44,
		CoinTypePrivia,
		bip32.FirstHardenedChild+account,
		externalChain,
		index,
	)
}

// privateBytes returns the 32-byte secret, or nil for a public key.
func (k *HDKey) privateBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PrivateKey returns the key as a crypto.PrivateKey.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	priv := k.privateBytes()
	if priv == nil {
		return nil, fmt.Errorf("public-only key cannot sign")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Sign implements crypto.Signer.
func (k *HDKey) Sign(hash []byte) ([]byte, error) {
	pk, err := k.PrivateKey()
	if err != nil {
		return nil, err
	}
	defer pk.Zero()
	return pk.Sign(hash)
}

// PublicKey returns the compressed 33-byte public key.
func (k *HDKey) PublicKey() []byte {
	return k.key.PublicKey().Key
}

// Address is the owner address controlled by this key.
func (k *HDKey) Address() types.Address {
	return crypto.AddressFromPubKey(k.PublicKey())
}

// IsPrivate reports whether k holds a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Neuter returns a public-only copy.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
