package webhook

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shopprotect/internal/audit"
	"shopprotect/internal/logger"
	"shopprotect/internal/session"
	"shopprotect/pkg/db"
)

// Cleanup removes an uninstalled shop's sessions and records the uninstall.
// A returned error makes the delivery fail so it is retried.
type Cleanup interface {
	Uninstall(ctx context.Context, shop string) error
}

// StoreCleanup works with any session backend. Once the sessions are gone the
// audit row is best-effort: a failed insert is logged, not retried.
type StoreCleanup struct {
	Sessions session.Storage
	Audit    audit.Recorder
	Logger   *zap.Logger
}

func (c StoreCleanup) Uninstall(ctx context.Context, shop string) error {
	sessions, err := c.Sessions.FindSessionsByShop(ctx, shop)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	if err := c.Sessions.DeleteSessions(ctx, ids); err != nil {
		return err
	}
	if c.Audit == nil {
		return nil
	}
	if err := c.Audit.Record(ctx, shop, audit.ActionAppUninstalled, "webhook", map[string]any{"sessions": len(ids)}); err != nil {
		logger.From(ctx, c.Logger).Warn("audit insert failed", zap.Error(err))
	}
	return nil
}

// TxCleanup is used when sessions live in postgres: the delete and the audit
// row commit together or not at all.
type TxCleanup struct {
	Pool *pgxpool.Pool
}

func (c TxCleanup) Uninstall(ctx context.Context, shop string) error {
	return db.WithTx(ctx, c.Pool, func(tx pgx.Tx) error {
		n, err := session.DeleteShopSessions(ctx, tx, shop)
		if err != nil {
			return err
		}
		return audit.Insert(ctx, tx, shop, audit.ActionAppUninstalled, "webhook", map[string]any{"sessions": n})
	})
}
