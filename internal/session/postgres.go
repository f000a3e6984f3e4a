package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopprotect/pkg/db"
)

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{db: pool}
}

const sessionColumns = `id, shop, state, is_online, COALESCE(scope,''), COALESCE(access_token,''), expires, user_id`

func (r *PostgresStorage) StoreSession(ctx context.Context, s Session) error {
	const q = `
INSERT INTO shopify_sessions (id, shop, state, is_online, scope, access_token, expires, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  shop = EXCLUDED.shop,
  state = EXCLUDED.state,
  is_online = EXCLUDED.is_online,
  scope = EXCLUDED.scope,
  access_token = EXCLUDED.access_token,
  expires = EXCLUDED.expires,
  user_id = EXCLUDED.user_id,
  updated_at = NOW()
`
	_, err := r.db.Exec(ctx, q, s.ID, s.Shop, s.State, s.IsOnline, s.Scope, s.AccessToken, s.Expires, s.UserID)
	return err
}

func (r *PostgresStorage) LoadSession(ctx context.Context, id string) (Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM shopify_sessions WHERE id = $1`
	s, err := scanSession(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresStorage) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM shopify_sessions WHERE id = $1`, id)
	return err
}

func (r *PostgresStorage) DeleteSessions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM shopify_sessions WHERE id = ANY($1)`, ids)
	return err
}

func (r *PostgresStorage) FindSessionsByShop(ctx context.Context, shop string) ([]Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM shopify_sessions WHERE shop = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, q, shop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.Shop, &s.State, &s.IsOnline, &s.Scope, &s.AccessToken, &s.Expires, &s.UserID)
	return s, err
}

// DeleteShopSessions removes every session of shop through ex and reports how
// many rows went.
func DeleteShopSessions(ctx context.Context, ex db.Execer, shop string) (int64, error) {
	tag, err := ex.Exec(ctx, `DELETE FROM shopify_sessions WHERE shop = $1`, shop)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
