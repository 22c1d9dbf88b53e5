// Package repos holds the per-table data access layer. Every method takes a
// dbctx.Context; when its Tx is set the call joins that transaction,
// otherwise it runs standalone on the pool.
package repos

import (
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
)

func conn(db *gorm.DB, dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return db.WithContext(dbc.Ctx)
}
