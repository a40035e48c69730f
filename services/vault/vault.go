// Package vault encrypts provider API keys at rest.
//
// The cipher key is derived once from the server secret with scrypt. Each
// encryption uses a fresh random nonce with AES-256-GCM and is stored as
// hex(nonce) ":" hex(ciphertext||tag).
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Janghoon33/AI-Pick/config"
	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	derivedBytes = 32
)

var errMalformed = errors.New("malformed ciphertext")

// Vault seals and opens per-provider secrets stored on a user record.
// It is immutable after New and safe for concurrent use.
type Vault struct {
	aead          cipher.AEAD
	usingDefaults bool
	logger        *zap.Logger
}

// New derives the cipher key. In production a missing secret or salt is a
// configuration error; elsewhere the built-in defaults are used with a warning.
func New(cfg config.VaultConfig, production bool, logger *zap.Logger) (*Vault, error) {
	secret, salt := cfg.EncryptionKey, cfg.EncryptionSalt
	usingDefaults := false

	if secret == "" || salt == "" {
		if production {
			return nil, services.NewConfigurationError("ENCRYPTION_KEY and ENCRYPTION_SALT must be set in production")
		}
		if secret == "" {
			secret = config.DefaultEncryptionKey
		}
		if salt == "" {
			salt = config.DefaultEncryptionSalt
		}
		usingDefaults = true
		logger.Warn("credential vault is using default key material; set ENCRYPTION_KEY and ENCRYPTION_SALT")
	}

	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, derivedBytes)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "failed to derive vault key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "failed to init cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "failed to init cipher", err)
	}

	return &Vault{aead: aead, usingDefaults: usingDefaults, logger: logger}, nil
}

// UsingDefaults reports whether the vault runs on the non-production fallback key
func (v *Vault) UsingDefaults() bool {
	return v.usingDefaults
}

// Encrypt seals plaintext with a fresh nonce
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if v == nil || v.aead == nil {
		return "", services.NewConfigurationError("credential vault is not configured")
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", services.WrapInternal("failed to generate nonce", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any failure, including a value
// sealed under a different key, returns a decryption error without detail.
func (v *Vault) Decrypt(stored string) (string, error) {
	if v == nil || v.aead == nil {
		return "", services.NewConfigurationError("credential vault is not configured")
	}

	nonceHex, sealedHex, ok := strings.Cut(stored, ":")
	if !ok {
		return "", services.WrapError(services.ErrorTypeDecryption, "credential unavailable", errMalformed)
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", services.WrapError(services.ErrorTypeDecryption, "credential unavailable", errMalformed)
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", services.WrapError(services.ErrorTypeDecryption, "credential unavailable", errMalformed)
	}

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", services.WrapError(services.ErrorTypeDecryption, "credential unavailable", err)
	}
	return string(plaintext), nil
}

// SetSecret encrypts plaintext into the user's slot for providerID, replacing any previous value
func (v *Vault) SetSecret(user *models.User, providerID, plaintext string) error {
	if strings.TrimSpace(plaintext) == "" {
		return services.NewValidationError("API key must not be empty")
	}

	sealed, err := v.Encrypt(plaintext)
	if err != nil {
		return err
	}

	if user.APIKeys == nil {
		user.APIKeys = models.SecretSlots{}
	}
	user.APIKeys[providerID] = sealed
	return nil
}

// GetSecret returns the decrypted secret for providerID.
// ok is false when the slot is empty or cannot be decrypted; the latter is logged.
func (v *Vault) GetSecret(user *models.User, providerID string) (string, bool) {
	stored, exists := user.APIKeys[providerID]
	if !exists || stored == "" {
		return "", false
	}

	plaintext, err := v.Decrypt(stored)
	if err != nil {
		v.logger.Warn("failed to decrypt stored API key",
			zap.String("user_id", user.ID.String()),
			zap.String("provider", providerID),
			zap.String("reason", fmt.Sprint(errors.Unwrap(err))),
		)
		return "", false
	}
	return plaintext, true
}

// DeleteSecret clears the user's slot for providerID
func (v *Vault) DeleteSecret(user *models.User, providerID string) {
	delete(user.APIKeys, providerID)
}

// Status reports which of providerIDs have a stored secret. Nothing is decrypted.
func (v *Vault) Status(user *models.User, providerIDs []string) map[string]bool {
	status := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		status[id] = user.APIKeys.Has(id)
	}
	return status
}
