package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

// Predicate is a named method precondition evaluated against the live turn.
type Predicate func(t *combat.Turn, ws *WorldState) bool

// Chances used by the probabilistic preconditions, in percent.
const (
	StandUpChance = 85
	ShoveChance   = 20
)

var predicates = map[string]Predicate{
	"prone": func(_ *combat.Turn, ws *WorldState) bool {
		return ws.Self.HasCondition(condition.Prone)
	},
	"stand_up_roll": func(t *combat.Turn, _ *WorldState) bool { return t.Chance(StandUpChance) },
	"shove_roll":    func(t *combat.Turn, _ *WorldState) bool { return t.Chance(ShoveChance) },
	"target_out_of_reach": func(_ *combat.Turn, ws *WorldState) bool {
		return ws.TargetAlive() && !ws.InReach() && ws.Self.Movement > 0
	},
	"can_strike": func(_ *combat.Turn, ws *WorldState) bool {
		return ws.TargetAlive() && ws.Self.Actions > 0 && ws.InReach()
	},
	"has_action": func(_ *combat.Turn, ws *WorldState) bool {
		return ws.TargetAlive() && ws.Self.Actions > 0
	},
	"engaged":        func(_ *combat.Turn, ws *WorldState) bool { return ws.Engaged() },
	"clear_shot":     func(_ *combat.Turn, ws *WorldState) bool { return ws.ClearShot(ws.Self.Pos) },
	"target_in_area": func(_ *combat.Turn, ws *WorldState) bool { return ws.TargetInDefenseArea() },
}

// Planner decomposes one domain's root task for a single combatant's turn and
// executes the resulting operators as it goes.
//
// Invariant: domain and logger must not be nil.
type Planner struct {
	domain *Domain
	logger *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and logger must not be nil; domain has passed Validate.
func NewPlanner(domain *Domain, logger *zap.Logger) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if logger == nil {
		panic("ai.NewPlanner: logger must not be nil")
	}
	return &Planner{domain: domain, logger: logger}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// maxSteps guards against domains that decompose forever.
const maxSteps = 64

// Run decomposes the root task against t and executes every operator reached,
// re-reading the battle snapshot before each step. Planning stops once the
// battle ends or the actor falls.
//
// Postcondition: returns the IDs of the executed operators in order.
func (p *Planner) Run(ctx context.Context, t *combat.Turn, targetID string) ([]string, error) {
	queue := []string{RootTask}
	var executed []string
	for steps := 0; len(queue) > 0 && steps < maxSteps; steps++ {
		if t.Ended() {
			break
		}
		current := queue[0]
		queue = queue[1:]
		ws := BuildWorldState(t.State(), t.ActorID(), targetID)

		if op, ok := p.domain.OperatorByID(current); ok {
			if op.Narration != "" {
				t.Say(op.Narration, ws.Self.Name)
			}
			if err := actions[op.Action](ctx, t, ws); err != nil {
				return executed, fmt.Errorf("ai: %s operator %q: %w", p.domain.ID, op.ID, err)
			}
			executed = append(executed, op.ID)
			continue
		}

		m := p.findApplicableMethod(current, t, ws)
		if m == nil {
			continue
		}
		p.logger.Debug("method selected",
			zap.String("domain", p.domain.ID), zap.String("task", current), zap.String("method", m.ID))
		queue = append(append([]string(nil), m.Subtasks...), queue...)
	}
	return executed, nil
}

// findApplicableMethod returns the first Method for taskID whose preconditions
// all pass, or nil if none applies. Preconditions short-circuit, so a chance
// roll listed last is only rolled when the others hold.
func (p *Planner) findApplicableMethod(taskID string, t *combat.Turn, ws *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		ok := true
		for _, name := range m.Preconditions {
			if !predicates[name](t, ws) {
				ok = false
				break
			}
		}
		if ok {
			return m
		}
	}
	return nil
}
