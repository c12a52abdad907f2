package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

// DefaultListLimit caps ListByBattle when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ReportRepository persists battle reports in the battle_reports table.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save inserts r under a fresh ID.
//
// Postcondition: Returns the stored report with ID and CreatedAt set.
func (r *ReportRepository) Save(ctx context.Context, rep combat.Report) (storage.StoredReport, error) {
	stored := storage.StoredReport{ID: storage.NewID(), Report: rep}
	err := r.db.QueryRow(ctx,
		`INSERT INTO battle_reports (id, battle_id, outcome, rounds, combatants, log)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		stored.ID, rep.BattleID, string(rep.Outcome), rep.Rounds, rep.Combatants, rep.Log,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return storage.StoredReport{}, fmt.Errorf("inserting report: %w", err)
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	return stored, nil
}

// Get retrieves a report by ID.
//
// Postcondition: Returns the report or storage.ErrReportNotFound.
func (r *ReportRepository) Get(ctx context.Context, id string) (storage.StoredReport, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, battle_id, outcome, rounds, combatants, log, created_at
		 FROM battle_reports WHERE id = $1`,
		id,
	)
	stored, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.StoredReport{}, storage.ErrReportNotFound
		}
		return storage.StoredReport{}, fmt.Errorf("querying report: %w", err)
	}
	return stored, nil
}

// ListByBattle returns up to limit reports of battleID, newest first.
func (r *ReportRepository) ListByBattle(ctx context.Context, battleID string, limit int) ([]storage.StoredReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, battle_id, outcome, rounds, combatants, log, created_at
		 FROM battle_reports WHERE battle_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		battleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []storage.StoredReport
	for rows.Next() {
		stored, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return out, nil
}

func scanReport(row pgx.Row) (storage.StoredReport, error) {
	var (
		stored  storage.StoredReport
		outcome string
		created time.Time
	)
	err := row.Scan(
		&stored.ID, &stored.Report.BattleID, &outcome, &stored.Report.Rounds,
		&stored.Report.Combatants, &stored.Report.Log, &created,
	)
	if err != nil {
		return storage.StoredReport{}, err
	}
	stored.Report.Outcome = combat.Outcome(outcome)
	stored.CreatedAt = created.UTC()
	return stored, nil
}

var _ storage.ReportStore = (*ReportRepository)(nil)
