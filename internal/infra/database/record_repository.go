// internal/infra/database/record_repository.go
package database

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"prayer_time_extractor/internal/domain/prayertime"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // For pq.QuoteIdentifier
)

const DefaultTable = "prayer_times"

var ErrUnexpectedHeader = fmt.Errorf("record header does not match the prayer_times columns")

// RecordRepository stores prayer-time records keyed by (zone, date).
// Re-extracting a range overwrites the stored rows.
type RecordRepository struct {
	db    *sqlx.DB
	table string
}

func NewRecordRepository(db *sqlx.DB, table string) *RecordRepository {
	if table == "" {
		table = DefaultTable
	}
	return &RecordRepository{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the table when it does not exist yet.
// The DDL is kept to types PostgreSQL and SQLite share.
func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
               zone       TEXT NOT NULL,
               date       DATE NOT NULL,
               hijri_am   TEXT NOT NULL,
               hijri_pm   TEXT NOT NULL,
               day        TEXT NOT NULL,
               imsak      TEXT NOT NULL,
               subuh      TEXT NOT NULL,
               syuruk     TEXT NOT NULL,
               zohor      TEXT NOT NULL,
               asar       TEXT NOT NULL,
               maghrib    TEXT NOT NULL,
               isyak      TEXT NOT NULL,
               state      TEXT NOT NULL,
               name       TEXT NOT NULL,
               updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
               PRIMARY KEY (zone, date)
           )`, r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating %s table: %w", r.table, err)
	}
	return nil
}

// UpsertBatch writes one zone's records in a single transaction.
func (r *RecordRepository) UpsertBatch(ctx context.Context, records []prayertime.Record) error {
	if len(records) == 0 {
		return nil
	}

	txn, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for upsert: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareNamedContext(ctx, fmt.Sprintf(`INSERT INTO %s (zone, date, hijri_am, hijri_pm, day, imsak, subuh, syuruk, zohor, asar, maghrib, isyak, state, name)
               VALUES (:zone, :date, :hijri_am, :hijri_pm, :day, :imsak, :subuh, :syuruk, :zohor, :asar, :maghrib, :isyak, :state, :name)
               ON CONFLICT (zone, date) DO UPDATE SET
                   hijri_am = EXCLUDED.hijri_am, hijri_pm = EXCLUDED.hijri_pm, day = EXCLUDED.day,
                   imsak = EXCLUDED.imsak, subuh = EXCLUDED.subuh, syuruk = EXCLUDED.syuruk,
                   zohor = EXCLUDED.zohor, asar = EXCLUDED.asar, maghrib = EXCLUDED.maghrib,
                   isyak = EXCLUDED.isyak, state = EXCLUDED.state, name = EXCLUDED.name,
                   updated_at = CURRENT_TIMESTAMP`, r.table))
	if err != nil {
		return fmt.Errorf("failed to prepare statement for upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			return fmt.Errorf("error upserting record (Z:%s, D:%s): %w", rec.Zone, rec.Date.Format("2006-01-02"), err)
		}
	}

	return txn.Commit()
}

// Sink returns a run-scoped sink backed by the repository. Closing it leaves the
// database open; the connection outlives individual runs.
func (r *RecordRepository) Sink() prayertime.Sink {
	return &recordSink{repo: r}
}

type recordSink struct {
	repo *RecordRepository
}

func (s *recordSink) WriteHeader(header []string) error {
	if !slices.Equal(header, prayertime.Header) {
		return fmt.Errorf("%w: got %s", ErrUnexpectedHeader, strings.Join(header, ","))
	}
	return nil
}

func (s *recordSink) Write(ctx context.Context, records []prayertime.Record) error {
	return s.repo.UpsertBatch(ctx, records)
}

func (s *recordSink) Close() error {
	return nil
}
