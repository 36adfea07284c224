// Package integrity signs closed ledgers so that out-of-band changes to their
// entries or closing figures are detected at reconciliation.
//
// Signatures have the form "<key id>.<hex HMAC-SHA256>". The HMAC key is
// derived per tenant from the configured secret with HKDF, so a signature
// copied between tenants never verifies. Retired keys stay available for
// verification after a rotation.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "cashledger/ledger-seal/v1"

// Key is a named sealing secret
type Key struct {
	ID     string
	Secret []byte
}

// HMACSealer implements ledger.Sealer
type HMACSealer struct {
	activeID string
	secrets  map[string][]byte

	mu      sync.RWMutex
	derived map[derivedKeyID][]byte
}

type derivedKeyID struct {
	keyID    string
	tenantID uuid.UUID
}

// NewHMACSealer creates a sealer that signs with active and verifies with
// active and every retired key.
func NewHMACSealer(active Key, retired ...Key) (*HMACSealer, error) {
	s := &HMACSealer{
		activeID: active.ID,
		secrets:  make(map[string][]byte, len(retired)+1),
		derived:  make(map[derivedKeyID][]byte),
	}
	for _, k := range append([]Key{active}, retired...) {
		if k.ID == "" || strings.Contains(k.ID, ".") {
			return nil, fmt.Errorf("invalid seal key id %q", k.ID)
		}
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("seal key %s has an empty secret", k.ID)
		}
		if _, dup := s.secrets[k.ID]; dup {
			return nil, fmt.Errorf("duplicate seal key id %s", k.ID)
		}
		s.secrets[k.ID] = k.Secret
	}
	return s, nil
}

// NewHMACSealerFromConfig builds a sealer from the integrity configuration
func NewHMACSealerFromConfig(cfg config.IntegrityConfig) (*HMACSealer, error) {
	if cfg.SealSecret == "" {
		return nil, errors.New("integrity.seal_secret is required")
	}
	retired := make([]Key, 0, len(cfg.RetiredKeys))
	for id, secret := range cfg.RetiredKeys {
		retired = append(retired, Key{ID: id, Secret: []byte(secret)})
	}
	return NewHMACSealer(Key{ID: cfg.KeyID, Secret: []byte(cfg.SealSecret)}, retired...)
}

// Seal signs payload for tenantID with the active key
func (s *HMACSealer) Seal(tenantID uuid.UUID, payload ledger.SealPayload) (string, error) {
	if tenantID == uuid.Nil {
		return "", errors.New("seal requires a tenant")
	}
	key, err := s.tenantKey(s.activeID, tenantID)
	if err != nil {
		return "", err
	}
	return s.activeID + "." + hex.EncodeToString(sign(key, payload)), nil
}

// Verify reports whether signature matches payload for tenantID. Malformed
// signatures and unknown key ids do not match.
func (s *HMACSealer) Verify(tenantID uuid.UUID, payload ledger.SealPayload, signature string) (bool, error) {
	keyID, mac, ok := strings.Cut(signature, ".")
	if !ok {
		return false, nil
	}
	want, err := hex.DecodeString(mac)
	if err != nil {
		return false, nil
	}
	if _, known := s.secrets[keyID]; !known || tenantID == uuid.Nil {
		return false, nil
	}
	key, err := s.tenantKey(keyID, tenantID)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want, sign(key, payload)), nil
}

// ActiveKeyID returns the id new signatures carry
func (s *HMACSealer) ActiveKeyID() string {
	return s.activeID
}

func (s *HMACSealer) tenantKey(keyID string, tenantID uuid.UUID) ([]byte, error) {
	id := derivedKeyID{keyID: keyID, tenantID: tenantID}
	s.mu.RLock()
	key, ok := s.derived[id]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	key = make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.secrets[keyID], tenantID[:], []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	s.mu.Lock()
	s.derived[id] = key
	s.mu.Unlock()
	return key, nil
}

func sign(key []byte, payload ledger.SealPayload) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload.Canonical())
	return mac.Sum(nil)
}

// Ensure HMACSealer implements ledger.Sealer
var _ ledger.Sealer = (*HMACSealer)(nil)
