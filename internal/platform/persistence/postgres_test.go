package persistence

import (
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDB(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("PoolExposesUnderlyingPool", func(t *testing.T) {
		// A nil pool is fine here; opening a real one needs a live server.
		var pool *pgxpool.Pool
		db := &PostgresDB{pool: pool, logger: logger}
		assert.Equal(t, pool, db.Pool())
	})

	t.Run("PoolSatisfiesQuerier", func(t *testing.T) {
		var pool *pgxpool.Pool
		var _ Querier = pool
	})
}
