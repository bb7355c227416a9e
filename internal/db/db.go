package db

import (
	"fmt"

	"linkstudio/internal/auth"
	"linkstudio/internal/docstore"
	"linkstudio/internal/jobs"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&docstore.Row{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	stmts := []string{
		// matches the field filter docstore.GormStore.Query builds for slug lookups
		`create index if not exists idx_documents_slug on documents(collection, json_extract_path_text(data::json, 'slug'));`,
		`create index if not exists idx_documents_collection on documents(collection, doc_id);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
