package service

import (
	"context"
	"errors"
	"fmt"

	"accounts/internal/repository"
	"accounts/internal/utils"

	"github.com/google/uuid"
)

// CredentialStore owns password and recovery-key hashing. Plaintext never
// leaves it except for freshly generated recovery keys.
type CredentialStore struct {
	hasher           PasswordHasher
	recoveryKeyCount int
}

func NewCredentialStore(hasher PasswordHasher, recoveryKeyCount int) *CredentialStore {
	if recoveryKeyCount <= 0 {
		recoveryKeyCount = 10
	}
	return &CredentialStore{hasher: hasher, recoveryKeyCount: recoveryKeyCount}
}

func (c *CredentialStore) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("empty password")
	}
	return c.hasher.Hash(plaintext)
}

func (c *CredentialStore) Verify(plaintext string, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return c.hasher.Verify(hash, plaintext)
}

// NewRecoveryKeys returns the plaintext batch for the caller and the hashes
// to persist, index-aligned.
func (c *CredentialStore) NewRecoveryKeys() ([]string, []string, error) {
	keys := make([]string, 0, c.recoveryKeyCount)
	hashes := make([]string, 0, c.recoveryKeyCount)
	for i := 0; i < c.recoveryKeyCount; i++ {
		key, err := utils.GenerateRecoveryKey()
		if err != nil {
			return nil, nil, fmt.Errorf("generate recovery key: %w", err)
		}
		hash, err := c.hasher.Hash(key)
		if err != nil {
			return nil, nil, fmt.Errorf("hash recovery key: %w", err)
		}
		keys = append(keys, key)
		hashes = append(hashes, hash)
	}
	return keys, hashes, nil
}

// ConsumeRecoveryKey removes the stored hash matching key, if any.
func (c *CredentialStore) ConsumeRecoveryKey(ctx context.Context, users repository.UserRepository, userID uuid.UUID, key string) (bool, error) {
	normalized := utils.NormalizeRecoveryKey(key)
	if normalized == "" {
		return false, nil
	}
	return users.ConsumeRecoveryKey(ctx, userID, func(hash string) bool {
		return c.hasher.Verify(hash, normalized)
	})
}
