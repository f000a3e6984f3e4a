package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"shopprotect/pkg/db"
)

const (
	ActionAppInstalled   = "APP_INSTALLED"
	ActionAppUninstalled = "APP_UNINSTALLED"
)

// Recorder writes install lifecycle rows. Shop profiles and tokens are never
// part of metadata.
type Recorder interface {
	Record(ctx context.Context, shop, action, actor string, metadata any) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) Record(ctx context.Context, shop, action, actor string, metadata any) error {
	return Insert(ctx, r.db, shop, action, actor, metadata)
}

// Insert writes one row through ex, so callers can put it in their transaction.
func Insert(ctx context.Context, ex db.Execer, shop, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO audit_logs (shop, action, actor, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := ex.Exec(ctx, q, shop, action, actor, s)
	return err
}

// Discard is used when the app runs without a database.
type Discard struct{}

func (Discard) Record(context.Context, string, string, string, any) error { return nil }
