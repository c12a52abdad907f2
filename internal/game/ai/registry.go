package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Registry indexes Planners by behavior profile and drives engine-controlled
// turns with them.
//
// Invariant: each profile is registered at most once.
type Registry struct {
	planners map[character.AIProfile]*Planner
	logger   *zap.Logger
}

// NewRegistry returns an empty Registry.
//
// Precondition: logger must not be nil.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		panic("ai.NewRegistry: logger must not be nil")
	}
	return &Registry{planners: make(map[character.AIProfile]*Planner), logger: logger}
}

// NewBuiltinRegistry registers the built-in domain of every profile.
func NewBuiltinRegistry(logger *zap.Logger) (*Registry, error) {
	domains, err := BuiltinDomains()
	if err != nil {
		return nil, err
	}
	r := NewRegistry(logger)
	for _, d := range domains {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	for _, p := range character.Profiles() {
		if _, ok := r.planners[p]; !ok {
			return nil, fmt.Errorf("ai.NewBuiltinRegistry: no domain for profile %q", p)
		}
	}
	return r, nil
}

// Register creates and stores a Planner for domain's profile.
//
// Precondition: domain must not be nil and must have passed Validate.
// Postcondition: returns error on profile collision.
func (r *Registry) Register(domain *Domain) error {
	if _, exists := r.planners[domain.Profile]; exists {
		return fmt.Errorf("ai.Registry: profile %q already registered", domain.Profile)
	}
	r.planners[domain.Profile] = NewPlanner(domain, r.logger)
	return nil
}

// PlannerFor returns the Planner for profile, or false if not registered.
func (r *Registry) PlannerFor(profile character.AIProfile) (*Planner, bool) {
	p, ok := r.planners[profile]
	return p, ok
}

// ProfileOf returns the profile that drives c; the empty profile fights as a
// brute.
func ProfileOf(c *character.Character) character.AIProfile {
	if c.Profile == "" {
		return character.ProfileBrute
	}
	return c.Profile
}

// TakeTurn plays the active combatant's turn against the opponent its
// domain's targeting policy picks at the start of the turn.
func (r *Registry) TakeTurn(ctx context.Context, t *combat.Turn) error {
	if t.Ended() {
		return nil
	}
	actor := t.Actor()
	profile := ProfileOf(actor)
	p, ok := r.PlannerFor(profile)
	if !ok {
		r.logger.Warn("no planner for profile", zap.String("actor", actor.ID), zap.String("profile", string(profile)))
		t.Say("%s does nothing.", actor.Name)
		return nil
	}
	target := ""
	if tgt := BuildWorldState(t.State(), actor.ID, "").ChooseTarget(p.Domain().Targeting); tgt != nil {
		target = tgt.ID
	}
	executed, err := p.Run(ctx, t, target)
	r.logger.Debug("turn planned",
		zap.String("actor", actor.ID),
		zap.String("profile", string(profile)),
		zap.String("target", target),
		zap.Strings("operators", executed))
	return err
}

var _ combat.EnemyController = (*Registry)(nil)
