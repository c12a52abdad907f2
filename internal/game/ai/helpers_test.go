package ai_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
)

// constant is a dice source that always draws v, capped to the die.
//
// v=50 rolls natural 20s and passes every chance check; v=90 fails them all.
type constant int

func (c constant) Intn(n int) int { return min(int(c), n-1) }

func stats(str, dex int) scenario.StatsDef {
	return scenario.StatsDef{Strength: str, Dexterity: dex, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10}
}

func hero() scenario.CombatantDef {
	return scenario.CombatantDef{
		ID: "hero", Name: "Hero", Position: scenario.Cell{1, 0},
		ProficiencyBonus: 2, Stats: stats(10, 10),
		HPMax: 30, AC: 14, Speed: 30,
		Attacks: []scenario.AttackDef{{
			Name: "Sword", Type: "melee", AttackSourceStat: "strength", DamageSourceStat: "strength",
			DamageDice: "1d8", DamageType: "slashing",
		}},
	}
}

func brute(x, y int) scenario.CombatantDef {
	return scenario.CombatantDef{
		ID: "orc", Name: "Orc", Position: scenario.Cell{x, y},
		ProficiencyBonus: 2, Stats: stats(10, 10),
		HPMax: 15, AC: 12, Speed: 30, AIProfile: "brute",
		Attacks: []scenario.AttackDef{{
			Name: "Greataxe", Type: "melee", AttackSourceStat: "strength", DamageSourceStat: "strength",
			DamageDice: "1d12", DamageType: "slashing",
		}},
	}
}

func archer(x, y int) scenario.CombatantDef {
	return scenario.CombatantDef{
		ID: "archer", Name: "Archer", Position: scenario.Cell{x, y},
		ProficiencyBonus: 2, Stats: stats(10, 14),
		HPMax: 12, AC: 13, Speed: 30, AIProfile: "ranged",
		Attacks: []scenario.AttackDef{{
			Name: "Shortbow", Type: "ranged", Range: 10, AttackSourceStat: "dexterity", DamageSourceStat: "dexterity",
			DamageDice: "1d8", DamageType: "piercing",
		}},
	}
}

func battle(h scenario.CombatantDef, enemies ...scenario.CombatantDef) *scenario.Document {
	return &scenario.Document{
		BattleID:         "AI",
		GridSize:         scenario.GridSize{Width: 10, Height: 10},
		PlayerCharacters: []scenario.CombatantDef{h},
		Enemies:          enemies,
	}
}

// newEngine returns an engine whose enemies are driven by the builtin registry.
func newEngine(t *testing.T, src constant) *combat.Engine {
	t.Helper()
	e := combat.NewEngine(combat.Options{
		Config: config.EngineConfig{MaxRounds: 10},
		Logger: zap.NewNop(),
		Source: src,
	})
	t.Cleanup(e.Close)
	reg, err := ai.NewBuiltinRegistry(zap.NewNop())
	if err != nil {
		t.Fatalf("NewBuiltinRegistry: %v", err)
	}
	e.SetEnemyController(reg)
	return e
}

// load publishes doc without rolling initiative.
func load(t *testing.T, e *combat.Engine, doc *scenario.Document) *combat.State {
	t.Helper()
	s, err := e.LoadBattle(context.Background(), doc)
	if err != nil {
		t.Fatalf("LoadBattle: %v", err)
	}
	return s
}

// play loads doc, rolls a 1 for the hero's initiative so the enemies act
// first, and waits for their turns to finish.
func play(t *testing.T, e *combat.Engine, doc *scenario.Document) *combat.State {
	t.Helper()
	load(t, e, doc)
	if _, err := e.SubmitRoll(context.Background(), 1); err != nil {
		t.Fatalf("SubmitRoll: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return e.Snapshot()
}

func logText(s *combat.State) string {
	var sb strings.Builder
	for _, l := range s.Log {
		sb.WriteString(combat.StripMarkup(l.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}
