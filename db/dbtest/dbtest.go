// Package dbtest opens throwaway SQLite-backed gateways for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/db"
	"github.com/stretchr/testify/require"
)

// New returns a migrated gateway over a private in-memory database.
func New(t testing.TB) *db.Gateway {
	return NewWithTx(t, config.TransactionConfig{MaxAttempts: 3, Backoff: time.Millisecond})
}

func NewWithTx(t testing.TB, txCfg config.TransactionConfig) *db.Gateway {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(config.DBConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db.NewGateway(conn, txCfg)
}
