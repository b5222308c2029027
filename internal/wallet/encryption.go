package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealVersion is the first byte of every sealed blob.
const sealVersion byte = 1

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// Sealed layout:
//
//	version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const (
	paramsOffset = 1 + SaltSize
	nonceOffset  = paramsOffset + 4 + 4 + 1
	dataOffset   = nonceOffset + chacha20poly1305.NonceSizeX
)

// ErrWrongPassword is returned when a sealed blob does not open.
var ErrWrongPassword = errors.New("wrong password or corrupted data")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the Argon2id parameters used for new wallets.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func (p EncryptionParams) validate() error {
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return fmt.Errorf("invalid argon2 parameters %+v", p)
	}
	return nil
}

func deriveKey(password, salt []byte, p EncryptionParams) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Encrypt seals data under password with Argon2id and XChaCha20-Poly1305.
// The header is authenticated as associated data.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	out := make([]byte, dataOffset, dataOffset+len(data)+chacha20poly1305.Overhead)
	out[0] = sealVersion
	salt := out[1:paramsOffset]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	binary.LittleEndian.PutUint32(out[paramsOffset:], params.Memory)
	binary.LittleEndian.PutUint32(out[paramsOffset+4:], params.Iterations)
	out[paramsOffset+8] = params.Parallelism
	nonce := out[nonceOffset:dataOffset]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return aead.Seal(out, nonce, data, out[:nonceOffset]), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(sealed, password []byte) ([]byte, error) {
	if len(sealed) < dataOffset+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(sealed))
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("unsupported seal version %d", sealed[0])
	}
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[paramsOffset:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[paramsOffset+4:]),
		Parallelism: sealed[paramsOffset+8],
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	key := deriveKey(password, sealed[1:paramsOffset], params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plain, err := aead.Open(nil, sealed[nonceOffset:dataOffset], sealed[dataOffset:], sealed[:nonceOffset])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plain, nil
}
