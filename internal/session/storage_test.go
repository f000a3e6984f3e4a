package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopprotect/pkg/config"
	"shopprotect/pkg/db"
)

// Postgres and redis run only when TEST_DATABASE_URL / TEST_REDIS_URL point at
// disposable servers.
func backends(t *testing.T) map[string]Storage {
	t.Helper()
	out := map[string]Storage{"memory": NewMemoryStorage()}

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		cfg := config.Config{DatabaseURL: url}
		require.NoError(t, db.Migrate("file://../../migrations", cfg))
		pool, err := pgxpool.New(context.Background(), url)
		require.NoError(t, err)
		t.Cleanup(pool.Close)
		out["postgres"] = NewPostgresStorage(pool)
	}
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		rs, err := NewRedisStorage(context.Background(), url)
		require.NoError(t, err)
		t.Cleanup(func() { _ = rs.Close() })
		out["redis"] = rs
	}
	return out
}

func TestStorageContract(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			shop := uuid.NewString()[:8] + ".myshopify.com"
			expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
			uid := int64(42)

			offline := Session{ID: OfflineID(shop), Shop: shop, State: "s", Scope: "read_orders", AccessToken: "shpat_1"}
			online := Session{ID: shop + "_42", Shop: shop, IsOnline: true, AccessToken: "shpua_1", Expires: &expires, UserID: &uid}
			require.NoError(t, st.StoreSession(ctx, offline))
			require.NoError(t, st.StoreSession(ctx, online))

			got, err := st.LoadSession(ctx, online.ID)
			require.NoError(t, err)
			assert.True(t, got.IsOnline)
			require.NotNil(t, got.Expires)
			assert.True(t, expires.Equal(*got.Expires))
			require.NotNil(t, got.UserID)
			assert.Equal(t, uid, *got.UserID)

			offline.AccessToken = "shpat_2"
			require.NoError(t, st.StoreSession(ctx, offline))
			got, err = st.LoadSession(ctx, offline.ID)
			require.NoError(t, err)
			assert.Equal(t, "shpat_2", got.AccessToken)

			all, err := st.FindSessionsByShop(ctx, shop)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			require.NoError(t, st.DeleteSession(ctx, online.ID))
			_, err = st.LoadSession(ctx, online.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, st.DeleteSessions(ctx, []string{offline.ID, "missing"}))
			all, err = st.FindSessionsByShop(ctx, shop)
			require.NoError(t, err)
			assert.Empty(t, all)

			require.NoError(t, st.DeleteSessions(ctx, nil))
		})
	}
}
