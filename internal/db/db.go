package db

import (
	"fmt"

	"munin/internal/journal"

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
	// Tables
	if err := gdb.AutoMigrate(
		&journal.Journal{},
		&journal.Entry{},
		&journal.Setting{},
	); err != nil {
		return err
	}

	// One journal per (user, local date); the accumulator relies on this
	// under concurrent first captures.
	// One entry per (journal, dedupe key); redelivery of the same message
	// must not create a second row.
	stmts := []string{
		`create unique index if not exists uq_journals_user_date on journals(user_id, date);`,
		`create unique index if not exists uq_entries_journal_dedupe on entries(journal_id, dedupe_key);`,
		`create index if not exists idx_journals_user_status_date on journals(user_id, status, date);`,
		`create index if not exists idx_entries_journal on entries(journal_id, id);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
