package storage

import (
	"context"

	"github.com/pressly/goose/v3"

	"github.com/sharif-ahmed/patientdesk/internal/migrations"
	"github.com/sharif-ahmed/patientdesk/libs/db"
)

// RunMigrations applies the embedded goose migrations. Goose works on
// database/sql, so the pool is adapted through its stdlib interface just for
// the duration of the run.
func RunMigrations(ctx context.Context, pool *db.Pool) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	sqlDB := pool.StdDB()
	defer func() { _ = sqlDB.Close() }()
	return goose.UpContext(ctx, sqlDB, ".")
}
