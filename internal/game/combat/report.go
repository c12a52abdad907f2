package combat

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// CombatantStatus is a combatant's state at the end of a battle.
type CombatantStatus string

const (
	StatusConscious CombatantStatus = "conscious"
	StatusDefeated  CombatantStatus = "defeated"
)

// CombatantReport summarizes one combatant at the end of a battle.
type CombatantReport struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Faction       character.Faction `json:"faction"`
	HPRemaining   int               `json:"hp_remaining"`
	HPMax         int               `json:"hp_max"`
	Status        CombatantStatus   `json:"status"`
	FinalPosition grid.Position     `json:"final_position"`
}

// Report is the outcome of an ended battle.
type Report struct {
	BattleID   string            `json:"battle_id"`
	Outcome    Outcome           `json:"outcome"`
	Rounds     int               `json:"rounds"`
	Combatants []CombatantReport `json:"combatants"`
	// Log is the battle log as plain text.
	Log []string `json:"log"`
}

// BuildReport summarizes s.
//
// Precondition: s is non-nil.
// Postcondition: returns ErrBattleInProgress unless s has ended.
func BuildReport(s *State) (Report, error) {
	if !s.Ended() {
		return Report{}, ErrBattleInProgress
	}
	r := Report{
		BattleID:   s.Battle.ID,
		Outcome:    s.Outcome,
		Rounds:     s.Round,
		Combatants: make([]CombatantReport, 0, len(s.Characters)),
		Log:        make([]string, 0, len(s.Log)),
	}
	for _, c := range s.Characters {
		status := StatusConscious
		if !c.Alive() {
			status = StatusDefeated
		}
		r.Combatants = append(r.Combatants, CombatantReport{
			ID:            c.ID,
			Name:          c.Name,
			Faction:       c.Faction,
			HPRemaining:   c.HP,
			HPMax:         c.MaxHP,
			Status:        status,
			FinalPosition: c.Pos,
		})
	}
	for _, l := range s.Log {
		r.Log = append(r.Log, StripMarkup(l.Text))
	}
	return r, nil
}

// StripMarkup returns the text content of a log line, dropping inline tags and
// decoding entities.
func StripMarkup(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	z := html.NewTokenizer(strings.NewReader(text))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return sb.String()
			}
			return text
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
