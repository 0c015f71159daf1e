package integrations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockKeyRepo is an in-memory Repository keyed by digest.
type mockKeyRepo struct {
	byHash map[string]*APIKey
	nextID int
}

func newMockKeyRepo() *mockKeyRepo {
	return &mockKeyRepo{byHash: make(map[string]*APIKey), nextID: 1}
}

func (m *mockKeyRepo) Create(ctx context.Context, key APIKey) (*APIKey, error) {
	for _, existing := range m.byHash {
		if existing.WorkspaceID == key.WorkspaceID && existing.Name == key.Name {
			return nil, ErrDuplicate
		}
	}
	key.ID = "key-" + key.Name
	key.CreatedAt = time.Now()
	m.byHash[key.KeyHash] = &key
	return &key, nil
}

func (m *mockKeyRepo) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	k, ok := m.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *mockKeyRepo) List(ctx context.Context, workspaceID string) ([]APIKey, error) {
	var out []APIKey
	for _, k := range m.byHash {
		if k.WorkspaceID == workspaceID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (m *mockKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	for _, k := range m.byHash {
		if k.ID == id {
			k.LastUsedAt = &at
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockKeyRepo) Delete(ctx context.Context, workspaceID, id string) error {
	for hash, k := range m.byHash {
		if k.ID == id && k.WorkspaceID == workspaceID {
			delete(m.byHash, hash)
			return nil
		}
	}
	return ErrNotFound
}

func TestCreateKeyShape(t *testing.T) {
	svc := NewService(newMockKeyRepo())

	created, err := svc.Create(context.Background(), "ws-1", "zapier")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.RawKey, "lk_"))
	assert.Len(t, created.RawKey, 3+48, "lk_ plus 24 random bytes hex encoded")
	assert.Equal(t, created.RawKey[:10], created.KeyPrefix)
	assert.NotContains(t, created.KeyHash, created.RawKey[3:], "raw key material never stored")
	assert.Equal(t, hashKey(created.RawKey), created.KeyHash)
}

func TestVerifyRoundtrip(t *testing.T) {
	svc := NewService(newMockKeyRepo())

	created, err := svc.Create(context.Background(), "ws-1", "zapier")
	require.NoError(t, err)

	key, err := svc.Verify(context.Background(), created.RawKey)
	require.NoError(t, err)
	assert.Equal(t, created.ID, key.ID)
	assert.NotNil(t, key.LastUsedAt)
}

func TestVerifyUnknownKey(t *testing.T) {
	svc := NewService(newMockKeyRepo())

	_, err := svc.Verify(context.Background(), "lk_deadbeef")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDuplicateName(t *testing.T) {
	svc := NewService(newMockKeyRepo())

	_, err := svc.Create(context.Background(), "ws-1", "zapier")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "ws-1", "zapier")
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Create(context.Background(), "ws-2", "zapier")
	require.NoError(t, err, "names are only unique per workspace")
}

func TestKeysAreUnique(t *testing.T) {
	svc := NewService(newMockKeyRepo())

	a, err := svc.Create(context.Background(), "ws-1", "a")
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), "ws-1", "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.RawKey, b.RawKey)
}
