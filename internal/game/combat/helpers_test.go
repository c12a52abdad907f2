package combat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
)

// scripted is a dice source replaying fixed die faces. Once the script runs
// out every die shows 1.
type scripted struct {
	mu    sync.Mutex
	faces []int
}

func faces(fs ...int) *scripted { return &scripted{faces: fs} }

func (s *scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.faces) == 0 {
		return 0
	}
	f := s.faces[0]
	s.faces = s.faces[1:]
	if f < 1 || f > n {
		return 0
	}
	return f - 1
}

type controllerFunc func(ctx context.Context, t *combat.Turn) error

func (f controllerFunc) TakeTurn(ctx context.Context, t *combat.Turn) error { return f(ctx, t) }

func newEngine(t *testing.T, src *scripted, mutate ...func(*config.EngineConfig)) *combat.Engine {
	t.Helper()
	cfg := config.EngineConfig{MaxRounds: 10}
	for _, m := range mutate {
		m(&cfg)
	}
	e := combat.NewEngine(combat.Options{Config: cfg, Logger: zap.NewNop(), Source: src})
	t.Cleanup(e.Close)
	return e
}

func stats(str, dex int) scenario.StatsDef {
	return scenario.StatsDef{Strength: str, Dexterity: dex, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10}
}

func hero() scenario.CombatantDef {
	return scenario.CombatantDef{
		ID: "hero", Name: "Hero", Position: scenario.Cell{1, 0},
		ProficiencyBonus: 2, Stats: stats(16, 10),
		HPMax: 20, AC: 14, Speed: 30,
		Attacks: []scenario.AttackDef{{
			Name: "Sword", Type: "melee", AttackSourceStat: "strength", DamageSourceStat: "strength",
			DamageDice: "1d8", DamageType: "slashing",
		}},
	}
}

func orc() scenario.CombatantDef {
	return scenario.CombatantDef{
		ID: "orc", Name: "Orc", Position: scenario.Cell{2, 0},
		ProficiencyBonus: 2, Stats: stats(10, 10),
		HPMax: 10, AC: 12, Speed: 9, AIProfile: "still",
		Attacks: []scenario.AttackDef{{
			Name: "Greataxe", Type: "melee", AttackSourceStat: "strength", DamageSourceStat: "strength",
			DamageDice: "1d12", DamageType: "slashing",
		}},
	}
}

func duel(h, o scenario.CombatantDef, terrain ...scenario.TerrainFeature) *scenario.Document {
	return &scenario.Document{
		BattleID:         "DUEL",
		GridSize:         scenario.GridSize{Width: 10, Height: 10},
		TerrainFeatures:  terrain,
		PlayerCharacters: []scenario.CombatantDef{h},
		Enemies:          []scenario.CombatantDef{o},
	}
}

func terrain(id, effect string, cells ...scenario.Cell) scenario.TerrainFeature {
	return scenario.TerrainFeature{ID: id, Name: id, Positions: cells, Effects: []scenario.TerrainEffect{{Type: effect}}}
}

// start loads doc and submits the hero's initiative die.
func start(t *testing.T, e *combat.Engine, doc *scenario.Document, initiative int) *combat.State {
	t.Helper()
	ctx := context.Background()
	_, err := e.LoadBattle(ctx, doc)
	require.NoError(t, err)
	_, err = e.SubmitRoll(ctx, initiative)
	require.NoError(t, err)
	return settle(t, e)
}

// settle waits for worker tasks and returns the resulting snapshot.
func settle(t *testing.T, e *combat.Engine) *combat.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
	return e.Snapshot()
}
