package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	var s storage.ReportStore = storage.Discard{}

	saved, err := s.Save(ctx, combat.Report{BattleID: "X"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "X", saved.Report.BattleID)

	_, err = s.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, storage.ErrReportNotFound)

	list, err := s.ListByBattle(ctx, "X", 10)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, storage.NewID(), storage.NewID())
}
