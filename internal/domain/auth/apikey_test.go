package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byHash  map[string]*APIKey
	findErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{byHash: make(map[string]*APIKey)}
}

func (m *mockRepo) FindByHash(_ context.Context, hash string) (*APIKey, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	k, ok := m.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return k, nil
}

func (m *mockRepo) Upsert(_ context.Context, key *APIKey) error {
	m.byHash[key.KeyHash] = key
	return nil
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("pepper"), "secret")
	h2 := Hash([]byte("pepper"), "secret")
	h3 := Hash([]byte("other"), "secret")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepo()
	a := NewAuthenticator(repo, []byte("pepper"))
	ctx := context.Background()

	require.NoError(t, a.Register(ctx, "admin", "Admin", "s3cret", ScopeOrdersAdmin))
	require.NoError(t, a.Register(ctx, "viewer", "Viewer", "view"))

	key, err := a.Authenticate(ctx, "s3cret", ScopeOrdersAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", key.ID)

	_, err = a.Authenticate(ctx, "wrong", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(ctx, "", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(ctx, "view", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = NewAuthenticator(repo, []byte("rotated")).Authenticate(ctx, "s3cret", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_CorruptHash(t *testing.T) {
	repo := newMockRepo()
	a := NewAuthenticator(repo, []byte("pepper"))
	repo.byHash[Hash([]byte("pepper"), "k")] = &APIKey{ID: "bad", KeyHash: "zz", Scopes: []string{ScopeOrdersAdmin}}

	_, err := a.Authenticate(context.Background(), "k", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = errors.New("connection refused")
	a := NewAuthenticator(repo, []byte("pepper"))

	_, err := a.Authenticate(context.Background(), "k", ScopeOrdersAdmin)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestKeyContext(t *testing.T) {
	_, ok := KeyFrom(context.Background())
	assert.False(t, ok)

	ctx := WithKey(context.Background(), &APIKey{ID: "admin"})
	k, ok := KeyFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", k.ID)
}
