package integrations

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	keyPrefix    = "lk_"
	keyRandBytes = 24
)

// CreatedKey pairs the stored record with the one-time raw key.
type CreatedKey struct {
	APIKey
	RawKey string `json:"key"`
}

// Service issues and verifies API keys.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// generateKey returns the raw key and its digest. Keys look like
// lk_6f1c...<48 hex chars>.
func generateKey() (raw, digest string, err error) {
	buf := make([]byte, keyRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	raw = keyPrefix + hex.EncodeToString(buf)
	return raw, hashKey(raw), nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// displayPrefix is the short identifying fragment kept for listings.
func displayPrefix(raw string) string {
	if len(raw) <= 10 {
		return raw
	}
	return raw[:10]
}

// Create issues a new key for the workspace. The raw key in the result is the
// only time it is ever available.
func (s *Service) Create(ctx context.Context, workspaceID, name string) (*CreatedKey, error) {
	raw, digest, err := generateKey()
	if err != nil {
		return nil, err
	}
	key := APIKey{
		WorkspaceID: workspaceID,
		Name:        name,
		KeyPrefix:   displayPrefix(raw),
		KeyHash:     digest,
	}
	stored, err := s.repo.Create(ctx, key)
	if err != nil {
		return nil, err
	}
	return &CreatedKey{APIKey: *stored, RawKey: raw}, nil
}

// Verify resolves a raw key to its record and touches last_used_at. The
// digest lookup is O(1); no key material is compared in the database.
func (s *Service) Verify(ctx context.Context, raw string) (*APIKey, error) {
	key, err := s.repo.GetByHash(ctx, hashKey(raw))
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchLastUsed(ctx, key.ID, time.Now()); err == nil {
		now := time.Now()
		key.LastUsedAt = &now
	}
	return key, nil
}

// List returns the workspace's keys, digests omitted from serialization.
func (s *Service) List(ctx context.Context, workspaceID string) ([]APIKey, error) {
	return s.repo.List(ctx, workspaceID)
}

// Delete revokes a key.
func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	return s.repo.Delete(ctx, workspaceID, id)
}
