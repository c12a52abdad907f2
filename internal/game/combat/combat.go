// Package combat implements the turn-based battle engine: initiative and
// rounds, movement with opportunity attacks, the attack, saving-throw and shove
// pipelines, discrete actions, and the Engine that serializes every transition
// into immutable versioned snapshots.
package combat

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Phase is the state-machine tag of a battle.
type Phase string

const (
	PhaseIdle                 Phase = "IDLE"
	PhaseInitiativeRoll       Phase = "INITIATIVE_ROLL_PLAYER"
	PhaseInitiativeResolved   Phase = "INITIATIVE_RESOLVED"
	PhaseAwaitingMoveTarget   Phase = "AWAITING_MOVE_TARGET"
	PhaseAwaitingAttackTarget Phase = "AWAITING_ATTACK_TARGET"
	PhaseAwaitingSpellTarget  Phase = "AWAITING_SPELL_TARGET"
	PhaseAwaitingExtraAttack  Phase = "AWAITING_EXTRA_ATTACK"
	PhaseAwaitingShoveTarget  Phase = "AWAITING_SHOVE_TARGET"
	PhaseRollingAttack        Phase = "ROLLING_ATTACK"
	PhaseAwaitingDamageRoll   Phase = "AWAITING_DAMAGE_ROLL"
	PhaseRollingHeal          Phase = "ROLLING_HEAL"
	PhaseAwaitingSavingThrow  Phase = "AWAITING_SAVING_THROW"
	PhaseEnemyTurn            Phase = "ENEMY_TURN"
	PhaseOpportunityAttack    Phase = "HANDLING_OPPORTUNITY_ATTACK"
	PhaseBattleEnded          Phase = "BATTLE_ENDED"
)

// Outcome is the final result of a battle from the player faction's view.
type Outcome string

const (
	OutcomeVictory   Outcome = "victory"
	OutcomeDefeat    Outcome = "defeat"
	OutcomeStalemate Outcome = "stalemate"
)

// Battle is the immutable map a battle is fought on.
type Battle struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Features    []grid.Feature `json:"features"`
}

// TextKind styles a floating text.
type TextKind string

const (
	TextInfo    TextKind = "info"
	TextError   TextKind = "error"
	TextDamage  TextKind = "damage"
	TextHeal    TextKind = "heal"
	TextMiss    TextKind = "miss"
	TextSuccess TextKind = "success"
)

// FloatingText is a transient message anchored to a cell.
type FloatingText struct {
	ID    int           `json:"id"`
	Text  string        `json:"text"`
	Pos   grid.Position `json:"position"`
	Kind  TextKind      `json:"kind"`
	Delay time.Duration `json:"delay,omitempty"`
	Age   time.Duration `json:"age,omitempty"`
}

// maxFloatingTexts bounds the queue when nothing ticks it down.
const maxFloatingTexts = 32

// LogKind classifies a log line.
type LogKind string

const (
	LogInfo          LogKind = "info"
	LogTurnStart     LogKind = "turn-start"
	LogDamage        LogKind = "damage"
	LogHeal          LogKind = "heal"
	LogCriticalHit   LogKind = "critical-hit"
	LogCriticalMiss  LogKind = "critical-miss"
	LogResistance    LogKind = "resistance"
	LogVulnerability LogKind = "vulnerability"
	LogSuccess       LogKind = "success"
	LogError         LogKind = "error"
	LogOpportunity   LogKind = "oa"
)

// LogEntry is one battle log line. Text may carry inline <b> markup around names.
type LogEntry struct {
	Seq  int     `json:"seq"`
	Text string  `json:"text"`
	Kind LogKind `json:"kind,omitempty"`
}

// AttackContext is the in-flight player attack.
type AttackContext struct {
	AttackerID string               `json:"attacker_id"`
	TargetID   string               `json:"target_id"`
	Edge       condition.Edge       `json:"edge"`
	Source     character.SourceKind `json:"source"`
	SpellID    string               `json:"spell_id,omitempty"`
	Critical   bool                 `json:"critical,omitempty"`
}

// SaveContext is a saving throw waiting on a player's die.
type SaveContext struct {
	TargetID string         `json:"target_id"`
	CasterID string         `json:"caster_id"`
	SpellID  string         `json:"spell_id"`
	Stat     character.Stat `json:"stat"`
	DC       int            `json:"dc"`
	// Resume is the phase restored once the save resolves.
	Resume Phase `json:"resume"`
}

// DiceRoll accumulates a multi-die roll submitted over several calls.
type DiceRoll struct {
	Count   int   `json:"count"`
	Sides   int   `json:"sides"`
	Results []int `json:"results,omitempty"`
}

// Remaining returns how many dice are still to be submitted.
func (d DiceRoll) Remaining() int { return max(0, d.Count-len(d.Results)) }

// RollKind says what an external die roll is for.
type RollKind string

const (
	RollInitiative  RollKind = "initiative"
	RollAttack      RollKind = "attack"
	RollDamage      RollKind = "damage"
	RollHeal        RollKind = "heal"
	RollSavingThrow RollKind = "saving_throw"
)

// RollRequest is the single outstanding request for externally supplied dice.
type RollRequest struct {
	Kind    RollKind `json:"kind"`
	ActorID string   `json:"actor_id"`
	// Count is the number of dice still expected; Sides bounds each value.
	Count int `json:"count"`
	Sides int `json:"sides"`
}

// OpportunityAttack is one queued reactive attack.
type OpportunityAttack struct {
	AttackerID string `json:"attacker_id"`
	TargetID   string `json:"target_id"`
}

// Inspection describes what occupies an inspected cell.
type Inspection struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Character   *character.Character `json:"character,omitempty"`
	Feature     *grid.Feature        `json:"feature,omitempty"`
}

// State is one published snapshot of a battle. Published snapshots are never
// mutated; every transition works on a Clone.
type State struct {
	Version uint64  `json:"version"`
	Phase   Phase   `json:"phase"`
	Battle  *Battle `json:"battle"`

	// Characters keeps roster order: players first, then enemies.
	Characters  []*character.Character `json:"characters"`
	TurnOrder   []string               `json:"turn_order,omitempty"`
	TurnIndex   int                    `json:"turn_index"`
	Round       int                    `json:"round"`
	ActiveID    string                 `json:"active_id,omitempty"`
	AttacksMade int                    `json:"attacks_made"`

	InspectedCell *grid.Position  `json:"inspected_cell,omitempty"`
	Inspected     *Inspection     `json:"inspected,omitempty"`
	Highlighted   []grid.Position `json:"highlighted,omitempty"`
	FloatingTexts []FloatingText  `json:"floating_texts,omitempty"`
	Log           []LogEntry      `json:"log"`

	Attack             *AttackContext      `json:"attack,omitempty"`
	Save               *SaveContext        `json:"save,omitempty"`
	Roll               *DiceRoll           `json:"roll,omitempty"`
	OpportunityAttacks []OpportunityAttack `json:"opportunity_attacks,omitempty"`
	PendingRoll        *RollRequest        `json:"pending_roll,omitempty"`
	// TargetingSpell is the spell armed by BeginTargeting.
	TargetingSpell string  `json:"targeting_spell,omitempty"`
	Outcome        Outcome `json:"outcome,omitempty"`

	nextText int
}

// Clone returns a deep copy that can be mutated without affecting s. The
// battle map is shared; log entries are shared through a capacity-capped slice
// so appends never write into s.
func (s *State) Clone() *State {
	cp := *s
	cp.Characters = make([]*character.Character, len(s.Characters))
	for i, c := range s.Characters {
		cp.Characters[i] = c.Clone()
	}
	cp.TurnOrder = append([]string(nil), s.TurnOrder...)
	cp.Highlighted = append([]grid.Position(nil), s.Highlighted...)
	cp.FloatingTexts = append([]FloatingText(nil), s.FloatingTexts...)
	cp.Log = s.Log[:len(s.Log):len(s.Log)]
	cp.OpportunityAttacks = append([]OpportunityAttack(nil), s.OpportunityAttacks...)
	if s.InspectedCell != nil {
		p := *s.InspectedCell
		cp.InspectedCell = &p
	}
	if s.Inspected != nil {
		in := *s.Inspected
		if in.Character != nil {
			in.Character = in.Character.Clone()
		}
		cp.Inspected = &in
	}
	if s.Attack != nil {
		a := *s.Attack
		cp.Attack = &a
	}
	if s.Save != nil {
		sv := *s.Save
		cp.Save = &sv
	}
	if s.Roll != nil {
		r := *s.Roll
		r.Results = append([]int(nil), s.Roll.Results...)
		cp.Roll = &r
	}
	if s.PendingRoll != nil {
		pr := *s.PendingRoll
		cp.PendingRoll = &pr
	}
	return &cp
}

// Character returns the combatant with id, or nil.
func (s *State) Character(id string) *character.Character {
	for _, c := range s.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Active returns the combatant whose turn it is, or nil.
func (s *State) Active() *character.Character {
	if s.ActiveID == "" {
		return nil
	}
	return s.Character(s.ActiveID)
}

// LivingAt returns the living combatant standing on p, or nil.
func (s *State) LivingAt(p grid.Position) *character.Character {
	for _, c := range s.Characters {
		if c.Alive() && c.Pos == p {
			return c
		}
	}
	return nil
}

// Living returns the living members of faction.
func (s *State) Living(f character.Faction) []*character.Character {
	var out []*character.Character
	for _, c := range s.Characters {
		if c.Faction == f && c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// Opponents returns the living combatants hostile to c.
func (s *State) Opponents(c *character.Character) []*character.Character {
	var out []*character.Character
	for _, o := range s.Characters {
		if o.Alive() && o.Faction.Opposes(c.Faction) {
			out = append(out, o)
		}
	}
	return out
}

// Engaged reports whether a living opponent stands within 1 cell of c.
func (s *State) Engaged(c *character.Character) bool {
	for _, o := range s.Opponents(c) {
		if grid.Chebyshev(o.Pos, c.Pos) <= 1 {
			return true
		}
	}
	return false
}

// Grid builds the query view for the current positions of the living.
func (s *State) Grid() *grid.Grid {
	bodies := make([]grid.Body, 0, len(s.Characters))
	for _, c := range s.Characters {
		if c.Alive() {
			bodies = append(bodies, c.Body())
		}
	}
	return grid.New(s.Battle.Width, s.Battle.Height, s.Battle.Features, bodies)
}

// Ended reports whether the battle is over.
func (s *State) Ended() bool { return s.Phase == PhaseBattleEnded }

func (s *State) logf(kind LogKind, format string, args ...any) {
	s.Log = append(s.Log, LogEntry{Seq: len(s.Log) + 1, Text: fmt.Sprintf(format, args...), Kind: kind})
}

func (s *State) float(text string, pos grid.Position, kind TextKind, delay time.Duration) {
	s.nextText++
	s.FloatingTexts = append(s.FloatingTexts, FloatingText{ID: s.nextText, Text: text, Pos: pos, Kind: kind, Delay: delay})
	if n := len(s.FloatingTexts); n > maxFloatingTexts {
		s.FloatingTexts = s.FloatingTexts[n-maxFloatingTexts:]
	}
}

// reject surfaces a non-fatal rule violation.
func (s *State) reject(text string, pos grid.Position) {
	s.float(text, pos, TextInfo, 0)
	s.logf(LogInfo, "%s", text)
}

func b(name string) string { return "<b>" + name + "</b>" }
