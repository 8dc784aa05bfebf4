package jwtx

import (
	"crypto/sha256"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLen is the shortest configured secret we accept.
const MinSecretLen = 16

// hkdfInfo binds derived keys to request token signing so the configured
// secret can be shared with other subsystems without key reuse.
const hkdfInfo = "reqtoken/hs256/v1"

// DeriveKey expands a configured secret into a 32 byte HMAC key.
func DeriveKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooWeak
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeySet holds the HMAC keys this instance signs and verifies with. New tokens
// are signed with the current key, older keys stay around so tokens minted
// before a rotation keep verifying.
type KeySet struct {
	mu      sync.RWMutex
	keys    map[string][]byte
	order   []string
	current string
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string][]byte)}
}

// Add derives a key from secret and registers it under kid. The first key
// added becomes current.
func (k *KeySet) Add(kid string, secret []byte) error {
	if kid == "" {
		return errors.New("jwtx: kid is required")
	}

	key, err := DeriveKey(secret)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[kid]; !exists {
		k.order = append(k.order, kid)
	}
	k.keys[kid] = key
	if k.current == "" {
		k.current = kid
	}
	return nil
}

// Rotate makes kid the signing key. The kid must already be registered.
func (k *KeySet) Rotate(kid string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[kid]; !ok {
		return ErrUnknownKID
	}
	k.current = kid
	return nil
}

// Current returns the signing kid and key.
func (k *KeySet) Current() (string, []byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.current == "" {
		return "", nil, ErrNoSigningKey
	}
	return k.current, k.keys[k.current], nil
}

// Get returns the key registered under kid.
func (k *KeySet) Get(kid string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKID
}

// All returns every key, current first.
func (k *KeySet) All() [][]byte {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([][]byte, 0, len(k.keys))
	if k.current != "" {
		out = append(out, k.keys[k.current])
	}
	for _, kid := range k.order {
		if kid != k.current {
			out = append(out, k.keys[kid])
		}
	}
	return out
}

// IsReady returns true if the KeySet can sign.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current != ""
}
