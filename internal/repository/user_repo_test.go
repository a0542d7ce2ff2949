package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB opens d without connecting and records the SQL of the last query.
func dryRunDB(t *testing.T, d gorm.Dialector) (*gorm.DB, *string) {
	t.Helper()
	db, err := gorm.Open(d, &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	var last string
	err = db.Callback().Query().After("gorm:query").Register("test:capture_sql", func(tx *gorm.DB) {
		last = tx.Statement.SQL.String()
	})
	require.NoError(t, err)
	return db, &last
}

func TestUserRepository_LockByIDTakesRowLock(t *testing.T) {
	dialects := map[string]gorm.Dialector{
		"mysql":    mysql.New(mysql.Config{DSN: "user:pass@tcp(127.0.0.1:3306)/wallet", SkipInitializeWithVersion: true}),
		"postgres": postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=wallet dbname=wallet sslmode=disable"}),
	}
	for name, d := range dialects {
		t.Run(name, func(t *testing.T) {
			db, sql := dryRunDB(t, d)
			repo := NewUserRepository(db)

			_, err := repo.LockByID(context.Background(), 7)
			require.NoError(t, err)
			assert.Contains(t, *sql, "FOR UPDATE")
			assert.Contains(t, *sql, "users")

			_, err = repo.GetByID(context.Background(), 7)
			require.NoError(t, err)
			assert.NotContains(t, *sql, "FOR UPDATE")
		})
	}
}

func TestUserRepository_LockByIDInsideTransaction(t *testing.T) {
	db, sql := dryRunDB(t, postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=wallet dbname=wallet sslmode=disable"}))
	tx := db.Session(&gorm.Session{DryRun: true})
	_, err := NewUserRepository(db).WithTx(tx).LockByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Contains(t, *sql, "FOR UPDATE")
}
