// Package storage defines the battle report store shared by the postgres and
// sqlite backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrReportNotFound is returned when a report lookup yields no results.
var ErrReportNotFound = errors.New("report not found")

// StoredReport is a persisted battle report.
type StoredReport struct {
	// ID identifies this run; one scenario may be fought many times.
	ID        string
	CreatedAt time.Time
	Report    combat.Report
}

// ReportStore persists final battle reports.
type ReportStore interface {
	// Save stores r under a fresh ID.
	Save(ctx context.Context, r combat.Report) (StoredReport, error)
	// Get returns the report with the given ID or ErrReportNotFound.
	Get(ctx context.Context, id string) (StoredReport, error)
	// ListByBattle returns up to limit reports of battleID, newest first.
	ListByBattle(ctx context.Context, battleID string, limit int) ([]StoredReport, error)
}

// NewID returns a fresh report ID.
func NewID() string { return uuid.NewString() }

// Discard is the ReportStore used when persistence is disabled. Saved reports
// are assigned an ID and dropped.
type Discard struct{}

// Save implements ReportStore.
func (Discard) Save(_ context.Context, r combat.Report) (StoredReport, error) {
	return StoredReport{ID: NewID(), CreatedAt: time.Now().UTC(), Report: r}, nil
}

// Get implements ReportStore.
func (Discard) Get(context.Context, string) (StoredReport, error) {
	return StoredReport{}, ErrReportNotFound
}

// ListByBattle implements ReportStore.
func (Discard) ListByBattle(context.Context, string, int) ([]StoredReport, error) {
	return nil, nil
}

var _ ReportStore = Discard{}
