package combat

import (
	"sort"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/character"
)

// SortInitiative returns combatant ids ordered by initiative descending, ties
// broken by dexterity modifier descending, then roster order.
func SortInitiative(cs []*character.Character) []string {
	sorted := append([]*character.Character(nil), cs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Initiative != sorted[j].Initiative {
			return sorted[i].Initiative > sorted[j].Initiative
		}
		return sorted[i].Mod(character.Dexterity) > sorted[j].Mod(character.Dexterity)
	})
	ids := make([]string, len(sorted))
	for i, c := range sorted {
		ids[i] = c.ID
	}
	return ids
}

// resolveInitiative uses playerRoll for the combatant that was asked to roll and
// rolls internally for everyone else.
//
// Postcondition: Phase == PhaseInitiativeResolved, TurnIndex == -1, Round == 0.
func (e *Engine) resolveInitiative(s *State, playerRoll int) {
	roller := s.ActiveID
	for _, c := range s.Characters {
		roll := playerRoll
		if c.ID != roller {
			roll = e.roller.D20()
		}
		dex := c.Mod(character.Dexterity)
		c.Initiative = roll + dex
		s.logf(LogInfo, "%s rolls initiative: %d %+d = %d", b(c.Name), roll, dex, c.Initiative)
	}
	s.TurnOrder = SortInitiative(s.Characters)
	names := make([]string, len(s.TurnOrder))
	for i, id := range s.TurnOrder {
		names[i] = s.Character(id).Name
	}
	s.logf(LogInfo, "Turn order: %s", strings.Join(names, ", "))
	s.TurnIndex = -1
	s.Round = 0
	s.ActiveID = ""
	s.PendingRoll = nil
	s.Phase = PhaseInitiativeResolved
}
