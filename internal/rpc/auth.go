package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
)

const (
	// AuthWindow is how far a request nonce, read as nanoseconds since the
	// epoch, may be from the server clock.
	AuthWindow = uint64(5 * time.Minute)

	// replayCacheSize bounds the in-memory front of the seen-digest store.
	replayCacheSize = 1 << 16

	// pruneEvery is the number of accepted requests between sweeps of
	// digests that fell out of the window.
	pruneEvery = 4096
)

var (
	ErrMissingAuth = errors.New("auth required")
	ErrBadAuth     = errors.New("invalid signature")
	ErrReplayed    = errors.New("request already seen")
	ErrStaleNonce  = errors.New("nonce outside the accepted time window")

	errStopSweep = errors.New("stop sweep")
)

// SigningDigest is the hash a caller signs for an update request. Chain id,
// method, params and the big-endian nonce are hashed as length-prefixed
// parts.
func SigningDigest(chainID, method string, params []byte, nonce uint64) types.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.HashParts([]byte(chainID), []byte(method), params, n[:])
}

// SignRequest fills req.Auth using signer. nonce should be the current time
// in nanoseconds.
func SignRequest(req *Request, chainID string, signer crypto.Signer, nonce uint64) error {
	digest := SigningDigest(chainID, req.Method, req.Params, nonce)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Auth = &Auth{
		PubKey:    hex.EncodeToString(signer.PublicKey()),
		Signature: hex.EncodeToString(sig),
		Nonce:     nonce,
	}
	return nil
}

// authenticator verifies request signatures and refuses replays. Accepted
// digests are stored under their nonce so they survive restarts; anything
// older than AuthWindow is refused by time alone and can be pruned.
type authenticator struct {
	chainID string
	now     func() uint64

	mu       sync.Mutex
	seen     *lru.Cache[types.Hash, struct{}]
	store    *storage.PrefixDB
	accepted int
}

func newAuthenticator(chainID string, store *storage.PrefixDB) *authenticator {
	seen, _ := lru.New[types.Hash, struct{}](replayCacheSize)
	if store == nil {
		store = storage.NewPrefixDB(storage.NewMemory(), nil)
	}
	return &authenticator{
		chainID: chainID,
		now:     func() uint64 { return uint64(time.Now().UnixNano()) },
		seen:    seen,
		store:   store,
	}
}

func seenKey(nonce uint64, digest types.Hash) []byte {
	key := binary.BigEndian.AppendUint64(make([]byte, 0, 8+len(digest)), nonce)
	return append(key, digest[:]...)
}

// verify returns the caller's owner address.
func (a *authenticator) verify(req *Request) (types.Address, error) {
	if req.Auth == nil {
		return types.Address{}, ErrMissingAuth
	}
	pub, err := hex.DecodeString(req.Auth.PubKey)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: pubkey is not hex", ErrBadAuth)
	}
	sig, err := hex.DecodeString(req.Auth.Signature)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: signature is not hex", ErrBadAuth)
	}
	nonce := req.Auth.Nonce
	digest := SigningDigest(a.chainID, req.Method, req.Params, nonce)
	if !crypto.VerifySignature(digest[:], sig, pub) {
		return types.Address{}, ErrBadAuth
	}

	now := a.now()
	if (nonce < now && now-nonce > AuthWindow) || (nonce > now && nonce-now > AuthWindow) {
		return types.Address{}, ErrStaleNonce
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen.Contains(digest) {
		return types.Address{}, ErrReplayed
	}
	key := seenKey(nonce, digest)
	found, err := a.store.Has(key)
	if err != nil {
		return types.Address{}, fmt.Errorf("read seen digests: %w", err)
	}
	if found {
		a.seen.Add(digest, struct{}{})
		return types.Address{}, ErrReplayed
	}
	if err := a.store.Put(key, nil); err != nil {
		return types.Address{}, fmt.Errorf("store seen digest: %w", err)
	}
	a.seen.Add(digest, struct{}{})

	a.accepted++
	if a.accepted%pruneEvery == 0 {
		a.prune(now)
	}
	return crypto.AddressFromPubKey(pub), nil
}

// prune drops digests whose nonce is older than the window. Keys sort by
// nonce, so the sweep stops at the first live one.
func (a *authenticator) prune(now uint64) {
	if now <= AuthWindow {
		return
	}
	cutoff := now - AuthWindow
	var stale [][]byte
	err := a.store.ForEach(nil, func(key, _ []byte) error {
		if len(key) < 8 || binary.BigEndian.Uint64(key[:8]) >= cutoff {
			return errStopSweep
		}
		stale = append(stale, append([]byte(nil), key...))
		return nil
	})
	if err != nil && !errors.Is(err, errStopSweep) {
		return
	}
	for _, k := range stale {
		if err := a.store.Delete(k); err != nil {
			return
		}
	}
}
