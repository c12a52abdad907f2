// Package sqlite provides an embedded SQLite battle report store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite/migrations"
)

// DefaultListLimit caps ListByBattle when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Store persists battle reports in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite database at path, creating it if needed, and applies
// the embedded migrations.
//
// Precondition: path must be non-empty.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := migrateUp(cleanPath); err != nil {
		return nil, err
	}
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func migrateUp(path string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+filepath.ToSlash(path))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts r under a fresh ID.
func (s *Store) Save(ctx context.Context, r combat.Report) (storage.StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return storage.StoredReport{}, err
	}
	combatants, err := json.Marshal(r.Combatants)
	if err != nil {
		return storage.StoredReport{}, fmt.Errorf("encode combatants: %w", err)
	}
	log, err := json.Marshal(r.Log)
	if err != nil {
		return storage.StoredReport{}, fmt.Errorf("encode log: %w", err)
	}
	stored := storage.StoredReport{
		ID:        storage.NewID(),
		CreatedAt: fromMillis(toMillis(time.Now())),
		Report:    r,
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO battle_reports (id, battle_id, outcome, rounds, combatants, log, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, r.BattleID, string(r.Outcome), r.Rounds, string(combatants), string(log), toMillis(stored.CreatedAt),
	)
	if err != nil {
		return storage.StoredReport{}, fmt.Errorf("insert report: %w", err)
	}
	return stored, nil
}

// Get returns the report with the given ID or storage.ErrReportNotFound.
func (s *Store) Get(ctx context.Context, id string) (storage.StoredReport, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, battle_id, outcome, rounds, combatants, log, created_at
		 FROM battle_reports WHERE id = ?`,
		id,
	)
	stored, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.StoredReport{}, storage.ErrReportNotFound
		}
		return storage.StoredReport{}, fmt.Errorf("get report: %w", err)
	}
	return stored, nil
}

// ListByBattle returns up to limit reports of battleID, newest first.
func (s *Store) ListByBattle(ctx context.Context, battleID string, limit int) ([]storage.StoredReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, battle_id, outcome, rounds, combatants, log, created_at
		 FROM battle_reports WHERE battle_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		battleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []storage.StoredReport
	for rows.Next() {
		stored, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (storage.StoredReport, error) {
	var (
		stored               storage.StoredReport
		outcome              string
		combatants, logLines string
		createdAt            int64
	)
	if err := row.Scan(&stored.ID, &stored.Report.BattleID, &outcome, &stored.Report.Rounds,
		&combatants, &logLines, &createdAt); err != nil {
		return storage.StoredReport{}, err
	}
	if err := json.Unmarshal([]byte(combatants), &stored.Report.Combatants); err != nil {
		return storage.StoredReport{}, fmt.Errorf("decode combatants: %w", err)
	}
	if err := json.Unmarshal([]byte(logLines), &stored.Report.Log); err != nil {
		return storage.StoredReport{}, fmt.Errorf("decode log: %w", err)
	}
	stored.Report.Outcome = combat.Outcome(outcome)
	stored.CreatedAt = fromMillis(createdAt)
	return stored, nil
}

var _ storage.ReportStore = (*Store)(nil)
