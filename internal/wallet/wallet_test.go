package wallet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/privia-labs/privia/pkg/crypto"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func fastParams() EncryptionParams {
	return EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	return seed
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Fields(m)); n != 24 {
		t.Errorf("word count = %d, want 24", n)
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic does not validate")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"canonical", testMnemonic, true},
		{"upper case and spacing", "  ABANDON abandon abandon abandon abandon abandon\tabandon abandon abandon abandon abandon About ", true},
		{"bad checksum", strings.Replace(testMnemonic, "about", "abandon", 1), false},
		{"unknown word", strings.Replace(testMnemonic, "about", "zzzz", 1), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.in); got != tt.ok {
				t.Errorf("ValidateMnemonic = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestSeedFromMnemonic(t *testing.T) {
	a := testSeed(t)
	if len(a) != SeedSize {
		t.Fatalf("seed length = %d", len(a))
	}
	b, _ := SeedFromMnemonic(strings.ToUpper(testMnemonic), "")
	if !bytes.Equal(a, b) {
		t.Error("seed depends on mnemonic case")
	}
	c, _ := SeedFromMnemonic(testMnemonic, "passphrase")
	if bytes.Equal(a, c) {
		t.Error("passphrase did not change the seed")
	}
	if _, err := SeedFromMnemonic("not a mnemonic", ""); err == nil {
		t.Error("expected an error for an invalid mnemonic")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	data := []byte("seed material")
	sealed, err := Encrypt(data, []byte("pw"), fastParams())
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decrypt(sealed, []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decrypt = %q", got)
	}

	if _, err := Decrypt(sealed, []byte("wrong")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password: err = %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[paramsOffset+4]++ // iterations are authenticated
	if _, err := Decrypt(tampered, []byte("pw")); err == nil {
		t.Error("expected an error for a tampered header")
	}

	versioned := append([]byte(nil), sealed...)
	versioned[0] = 9
	if _, err := Decrypt(versioned, []byte("pw")); err == nil {
		t.Error("expected an error for an unknown version")
	}

	if _, err := Decrypt(sealed[:10], []byte("pw")); err == nil {
		t.Error("expected an error for short input")
	}
	if _, err := Encrypt(data, []byte("pw"), EncryptionParams{}); err == nil {
		t.Error("expected an error for zero parameters")
	}
}

func TestEncrypt_FreshSaltAndNonce(t *testing.T) {
	a, _ := Encrypt([]byte("x"), []byte("pw"), fastParams())
	b, _ := Encrypt([]byte("x"), []byte("pw"), fastParams())
	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical output")
	}
}

func TestHDKey_Identity(t *testing.T) {
	master, err := NewMasterKey(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	k0, err := master.Identity(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	k0again, _ := master.Identity(0, 0)
	k1, _ := master.Identity(0, 1)
	if k0.Address() != k0again.Address() {
		t.Error("derivation is not deterministic")
	}
	if k0.Address() == k1.Address() {
		t.Error("different indices gave the same address")
	}
	if len(k0.PublicKey()) != 33 {
		t.Errorf("public key length = %d", len(k0.PublicKey()))
	}

	hash := crypto.Hash([]byte("message"))
	sig, err := k0.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if !crypto.VerifySignature(hash[:], sig, k0.PublicKey()) {
		t.Error("signature does not verify")
	}
	if crypto.VerifySignature(hash[:], sig, k1.PublicKey()) {
		t.Error("signature verified under another key")
	}

	pub := k0.Neuter()
	if pub.IsPrivate() || pub.Address() != k0.Address() {
		t.Error("neutered key mismatch")
	}
	if _, err := pub.Sign(hash[:]); err == nil {
		t.Error("public key signed")
	}
	if _, err := NewMasterKey([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a short seed")
	}
}

func TestHDKey_PrivateKeyMatches(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	k, _ := master.Identity(2, 7)
	pk, err := k.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if pk.Address() != k.Address() {
		t.Errorf("private key address %s != %s", pk.Address(), k.Address())
	}
}

func newTestKeystore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ks.SetParams(fastParams())
	return ks
}

func TestKeystore_Lifecycle(t *testing.T) {
	ks := newTestKeystore(t)
	pw := []byte("secret")
	seed := testSeed(t)

	if err := ks.Create("main", seed, pw); err != nil {
		t.Fatal(err)
	}
	if err := ks.Create("main", seed, pw); !errors.Is(err, ErrWalletExists) {
		t.Errorf("duplicate create: err = %v", err)
	}

	loaded, err := ks.Load("main", pw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(loaded, seed) {
		t.Error("loaded seed differs")
	}
	if _, err := ks.Load("main", []byte("nope")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password: err = %v", err)
	}

	a0, err := ks.DeriveNext("main", pw, "first")
	if err != nil {
		t.Fatal(err)
	}
	a1, err := ks.DeriveNext("main", pw, "second")
	if err != nil {
		t.Fatal(err)
	}
	if a0.Index != 0 || a1.Index != 1 || a0.Address == a1.Address {
		t.Errorf("derived %+v, %+v", a0, a1)
	}

	accounts, err := ks.ListAccounts("main")
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[1].Name != "second" {
		t.Errorf("accounts = %+v", accounts)
	}

	signer, err := ks.Signer("main", pw, 1)
	if err != nil {
		t.Fatal(err)
	}
	if signer.Address().String() != a1.Address {
		t.Errorf("signer address = %s, want %s", signer.Address(), a1.Address)
	}
	if _, err := ks.Signer("main", pw, 5); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("unknown index: err = %v", err)
	}

	names, err := ks.List()
	if err != nil || len(names) != 1 || names[0] != "main" {
		t.Errorf("List = %v, %v", names, err)
	}
	if err := ks.Delete("main"); err != nil {
		t.Fatal(err)
	}
	if err := ks.Delete("main"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
	if _, err := ks.Load("main", pw); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("load after delete: err = %v", err)
	}
}

func TestKeystore_AddAccount(t *testing.T) {
	ks := newTestKeystore(t)
	if err := ks.Create("w", testSeed(t), []byte("pw")); err != nil {
		t.Fatal(err)
	}
	entry := AccountEntry{Index: 3, Name: "imported", Address: "addr-3"}
	if err := ks.AddAccount("w", entry); err != nil {
		t.Fatal(err)
	}
	if err := ks.AddAccount("w", entry); err != nil {
		t.Errorf("idempotent add: %v", err)
	}
	if err := ks.AddAccount("w", AccountEntry{Index: 3, Address: "other"}); err == nil {
		t.Error("expected a conflict for a reused index")
	}
	next, err := ks.DeriveNext("w", []byte("pw"), "")
	if err != nil {
		t.Fatal(err)
	}
	if next.Index != 4 {
		t.Errorf("next index = %d, want 4", next.Index)
	}
}

func TestKeystore_InvalidName(t *testing.T) {
	ks := newTestKeystore(t)
	for _, name := range []string{"", "../escape", "has space", "a/b"} {
		if err := ks.Create(name, testSeed(t), []byte("pw")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Create(%q): err = %v", name, err)
		}
	}
}
