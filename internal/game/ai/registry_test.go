package ai_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
)

func TestRegistry_Register_And_PlannerFor(t *testing.T) {
	reg := ai.NewRegistry(zap.NewNop())
	if err := reg.Register(guardDomain()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	planner, ok := reg.PlannerFor(character.ProfileDefender)
	if !ok || planner.Domain().ID != "guard" {
		t.Fatal("expected planner for defender")
	}
	if _, ok := reg.PlannerFor(character.ProfileRanged); ok {
		t.Fatal("expected no planner for ranged")
	}
}

func TestRegistry_Register_CollisionError(t *testing.T) {
	reg := ai.NewRegistry(zap.NewNop())
	_ = reg.Register(guardDomain())
	if err := reg.Register(guardDomain()); err == nil {
		t.Fatal("expected collision error on second Register")
	}
}

func TestNewBuiltinRegistry_CoversEveryProfile(t *testing.T) {
	reg, err := ai.NewBuiltinRegistry(zap.NewNop())
	if err != nil {
		t.Fatalf("NewBuiltinRegistry: %v", err)
	}
	for _, p := range character.Profiles() {
		if _, ok := reg.PlannerFor(p); !ok {
			t.Errorf("no planner for %q", p)
		}
	}
}

func TestProfileOf_EmptyMeansBrute(t *testing.T) {
	c := &character.Character{}
	if got := ai.ProfileOf(c); got != character.ProfileBrute {
		t.Fatalf("ProfileOf(empty) = %q, want brute", got)
	}
	c.Profile = character.ProfileRanged
	if got := ai.ProfileOf(c); got != character.ProfileRanged {
		t.Fatalf("ProfileOf = %q, want ranged", got)
	}
}

func TestRegistry_TakeTurn_WithoutPlannerDoesNothing(t *testing.T) {
	e := newEngine(t, constant(50))
	e.SetEnemyController(ai.NewRegistry(zap.NewNop()))
	s := play(t, e, battle(hero(), brute(2, 0)))
	if !strings.Contains(logText(s), "Orc does nothing.") {
		t.Fatalf("missing narration in log:\n%s", logText(s))
	}
	if s.Character("hero").HP != 30 {
		t.Fatal("an unplanned turn must not attack")
	}
}

func TestRegistry_TakeTurn_WeakestTargeting(t *testing.T) {
	domains, err := ai.BuiltinDomains()
	if err != nil {
		t.Fatalf("BuiltinDomains: %v", err)
	}
	reg := ai.NewRegistry(zap.NewNop())
	for _, d := range domains {
		if d.Profile == character.ProfileBrute {
			d.Targeting = ai.TargetWeakest
		}
		if err := reg.Register(d); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	// Failed chance checks rule out the shove; every d20 is a natural 20.
	e := newEngine(t, constant(90))
	e.SetEnemyController(reg)
	ally := hero()
	ally.ID, ally.Name, ally.Position, ally.HPCurrent = "ally", "Ally", scenario.Cell{5, 5}, 3
	orc := brute(3, 0)
	orc.Stats = stats(10, 14)
	doc := battle(hero(), orc)
	doc.PlayerCharacters = append(doc.PlayerCharacters, ally)

	s := play(t, e, doc)
	if s.Character("ally").Alive() {
		t.Fatalf("brute should have felled the weakest opponent:\n%s", logText(s))
	}
	if s.Character("hero").HP != 30 {
		t.Fatal("the nearest opponent must be left alone")
	}
}

func TestNewRegistry_PanicsOnNilLogger(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	ai.NewRegistry(nil)
}
