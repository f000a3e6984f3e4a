package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopprotect/pkg/config"
)

func TestMemoryStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	_, err := st.LoadSession(ctx, "offline_a.myshopify.com")
	assert.ErrorIs(t, err, ErrNotFound)

	uid := int64(7)
	exp := time.Unix(1700000000, 0)
	sessions := []Session{
		{ID: OfflineID("a.myshopify.com"), Shop: "a.myshopify.com", AccessToken: "t1", Scope: "read_orders"},
		{ID: "a.myshopify.com_7", Shop: "a.myshopify.com", IsOnline: true, AccessToken: "t2", Expires: &exp, UserID: &uid},
		{ID: OfflineID("b.myshopify.com"), Shop: "b.myshopify.com", AccessToken: "t3"},
	}
	for _, s := range sessions {
		require.NoError(t, st.StoreSession(ctx, s))
	}

	got, err := st.LoadSession(ctx, "offline_a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, sessions[0], got)

	byShop, err := st.FindSessionsByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	require.Len(t, byShop, 2)
	assert.Equal(t, "a.myshopify.com_7", byShop[0].ID)

	require.NoError(t, st.DeleteSessions(ctx, []string{byShop[0].ID, byShop[1].ID}))
	byShop, err = st.FindSessionsByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Empty(t, byShop)

	require.NoError(t, st.DeleteSession(ctx, OfflineID("b.myshopify.com")))
	_, err = st.LoadSession(ctx, OfflineID("b.myshopify.com"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_StoreOverwrites(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	require.NoError(t, st.StoreSession(ctx, Session{ID: "x", Shop: "a.myshopify.com", AccessToken: "old"}))
	require.NoError(t, st.StoreSession(ctx, Session{ID: "x", Shop: "a.myshopify.com", AccessToken: "new"}))

	got, err := st.LoadSession(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
}

func TestSession_IsActive(t *testing.T) {
	now := time.Unix(1700000000, 0)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Session{AccessToken: "t", Scope: "write_orders"}.IsActive([]string{"read_orders"}, now))
	assert.True(t, Session{AccessToken: "t", Expires: &future}.IsActive(nil, now))
	assert.False(t, Session{AccessToken: "t", Expires: &past}.IsActive(nil, now))
	assert.False(t, Session{Scope: "read_orders"}.IsActive(nil, now))
	assert.False(t, Session{AccessToken: "t", Scope: "read_orders"}.IsActive([]string{"write_orders"}, now))
}

func TestScopesCover(t *testing.T) {
	assert.True(t, ScopesCover("read_orders, write_products", []string{"read_products", "read_orders"}))
	assert.False(t, ScopesCover("read_products", []string{"write_products"}))
	assert.True(t, ScopesCover("", nil))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.SessionConfig{Store: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, st)

	_, err = Open(ctx, config.SessionConfig{Store: "postgres"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, config.SessionConfig{Store: "mongo"}, nil)
	assert.Error(t, err)
}
