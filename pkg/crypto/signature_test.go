package crypto

import (
	"bytes"
	"testing"
)

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest := Hash([]byte("icrc1_transfer"))

	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	if !VerifySignature(digest[:], sig, key.PublicKey()) {
		t.Error("valid signature rejected")
	}

	other := Hash([]byte("icrc2_approve"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature verified against wrong digest")
	}

	key2, _ := GenerateKey()
	if VerifySignature(digest[:], sig, key2.PublicKey()) {
		t.Error("signature verified against wrong key")
	}

	bad := append([]byte(nil), sig...)
	bad[10] ^= 0xff
	if VerifySignature(digest[:], bad, key.PublicKey()) {
		t.Error("corrupted signature verified")
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	digest := Hash([]byte("x"))
	if VerifySignature(digest[:], []byte{1, 2}, []byte{3}) {
		t.Error("garbage inputs verified")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("Sign should reject non-32-byte input")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, _ := GenerateKey()
	restored, err := PrivateKeyFromBytes(key.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if !bytes.Equal(restored.PublicKey(), key.PublicKey()) {
		t.Error("restored key has a different public key")
	}
	if _, err := PrivateKeyFromBytes(make([]byte, 31)); err == nil {
		t.Error("31-byte key should be rejected")
	}
}

func TestPrivateKey_ImplementsSigner(t *testing.T) {
	var s Signer
	key, _ := GenerateKey()
	s = key
	if len(s.PublicKey()) != 33 {
		t.Errorf("compressed pubkey length = %d", len(s.PublicKey()))
	}
}
