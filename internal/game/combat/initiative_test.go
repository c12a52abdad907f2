package combat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

func TestCollapseEdges(t *testing.T) {
	assert.Equal(t, condition.NoEdge, combat.CollapseEdges(nil))
	assert.Equal(t, condition.Advantage, combat.CollapseEdges([]condition.Edge{condition.Advantage, condition.Advantage}))
	assert.Equal(t, condition.Disadvantage, combat.CollapseEdges([]condition.Edge{condition.NoEdge, condition.Disadvantage}))
	assert.Equal(t, condition.NoEdge, combat.CollapseEdges([]condition.Edge{condition.Advantage, condition.Disadvantage, condition.Disadvantage}))
}

func TestProperty_CollapseEdgesCancels(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		edges := rapid.SliceOf(rapid.SampledFrom([]condition.Edge{
			condition.NoEdge, condition.Advantage, condition.Disadvantage,
		})).Draw(rt, "edges")
		var adv, dis bool
		for _, e := range edges {
			adv = adv || e == condition.Advantage
			dis = dis || e == condition.Disadvantage
		}
		got := combat.CollapseEdges(edges)
		switch {
		case adv == dis:
			assert.Equal(rt, condition.NoEdge, got)
		case adv:
			assert.Equal(rt, condition.Advantage, got)
		default:
			assert.Equal(rt, condition.Disadvantage, got)
		}
	})
}

func TestProperty_SortInitiativeOrders(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		cs := make([]*character.Character, n)
		for i := range cs {
			cs[i] = character.New(character.Sheet{
				ID:      fmt.Sprintf("c%d", i),
				Name:    fmt.Sprintf("C%d", i),
				Faction: character.FactionEnemy,
				MaxHP:   1,
				Stats:   character.Stats{Dexterity: rapid.IntRange(1, 20).Draw(rt, "dex")},
			})
			cs[i].Initiative = rapid.IntRange(-5, 25).Draw(rt, "initiative")
		}
		byID := map[string]*character.Character{}
		roster := map[string]int{}
		for i, c := range cs {
			byID[c.ID] = c
			roster[c.ID] = i
		}

		order := combat.SortInitiative(cs)
		assert.Len(rt, order, n)
		for i := 1; i < len(order); i++ {
			a, b := byID[order[i-1]], byID[order[i]]
			if a.Initiative != b.Initiative {
				assert.Greater(rt, a.Initiative, b.Initiative)
				continue
			}
			da, db := a.Mod(character.Dexterity), b.Mod(character.Dexterity)
			if da != db {
				assert.Greater(rt, da, db)
				continue
			}
			assert.Less(rt, roster[a.ID], roster[b.ID])
		}
	})
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Orc takes 7 slashing damage.", combat.StripMarkup("<b>Orc</b> takes <b>7</b> slashing damage."))
	assert.Equal(t, "plain", combat.StripMarkup("plain"))
	assert.Equal(t, "a & b", combat.StripMarkup("a &amp; b"))
}
