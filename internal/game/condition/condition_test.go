package condition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

func TestBuiltin_ContainsClosedSet(t *testing.T) {
	reg := condition.Builtin()
	for _, id := range []condition.ID{condition.Prone, condition.Blinded} {
		def, ok := reg.Get(id)
		require.True(t, ok, "missing %s", id)
		assert.NotEmpty(t, def.Name)
		assert.True(t, condition.Known(id))
	}
	assert.False(t, condition.Known("poisoned"))
	assert.Len(t, reg.All(), 2)
}

func TestRegistry_AttackerEdges(t *testing.T) {
	reg := condition.Builtin()
	assert.Empty(t, reg.AttackerEdges(condition.NewSet()))
	assert.Equal(t, []condition.Edge{condition.Disadvantage}, reg.AttackerEdges(condition.NewSet(condition.Prone)))
	assert.Len(t, reg.AttackerEdges(condition.NewSet(condition.Prone, condition.Blinded)), 2)
}

func TestRegistry_DefenderEdges_ProneDependsOnRange(t *testing.T) {
	reg := condition.Builtin()
	prone := condition.NewSet(condition.Prone)
	assert.Equal(t, []condition.Edge{condition.Advantage}, reg.DefenderEdges(prone, false))
	assert.Equal(t, []condition.Edge{condition.Disadvantage}, reg.DefenderEdges(prone, true))

	blind := condition.NewSet(condition.Blinded)
	assert.Equal(t, []condition.Edge{condition.Advantage}, reg.DefenderEdges(blind, false))
	assert.Equal(t, []condition.Edge{condition.Advantage}, reg.DefenderEdges(blind, true))
}

func TestRegistry_Crawling(t *testing.T) {
	reg := condition.Builtin()
	assert.True(t, reg.Crawling(condition.NewSet(condition.Prone)))
	assert.False(t, reg.Crawling(condition.NewSet(condition.Blinded)))
}

func TestRegistry_RegisterPanicsWithoutID(t *testing.T) {
	assert.Panics(t, func() { condition.NewRegistry().Register(&condition.Def{}) })
}

func TestLoadDirectory_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deafened.yaml"), []byte(`
id: deafened
name: Deafened
description: "Cannot hear."
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	reg, err := condition.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("deafened")
	require.True(t, ok)
	assert.Equal(t, "Deafened", def.Name)
}

func TestLoadDirectory_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("id: x\nlua_on_apply: boom\n"), 0644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := condition.LoadDirectory("/nonexistent/conditions")
	assert.Error(t, err)
}

func TestSet_IdempotentAddRemove(t *testing.T) {
	var s condition.Set
	assert.True(t, s.Add(condition.Prone))
	assert.False(t, s.Add(condition.Prone))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Remove(condition.Prone))
	assert.False(t, s.Remove(condition.Prone))
	assert.False(t, s.Has(condition.Prone))
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := condition.NewSet(condition.Prone)
	c := s.Clone()
	c.Add(condition.Blinded)
	c.Remove(condition.Prone)
	assert.True(t, s.Has(condition.Prone))
	assert.False(t, s.Has(condition.Blinded))
}

func TestSet_Property_AddThenHas(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ops := rapid.SliceOf(rapid.SampledFrom([]condition.ID{condition.Prone, condition.Blinded})).Draw(rt, "ops")
		var s condition.Set
		for _, id := range ops {
			s.Add(id)
			assert.True(rt, s.Has(id))
		}
		assert.LessOrEqual(rt, s.Len(), 2)
	})
}

func TestEffects_RemoveFromCasterKeepsPersistent(t *testing.T) {
	var es condition.Effects
	es = es.Add(condition.NewEffect(condition.SpeedReduction, "mage", 2))
	es = es.Add(condition.NewEffect(condition.DisadvantageOnNextAttack, "mage", 0))
	es = es.Add(condition.NewEffect(condition.SpeedReduction, "other", 1))

	es = es.RemoveFromCaster("mage")
	require.Len(t, es, 2)
	_, ok := es.First(condition.DisadvantageOnNextAttack)
	assert.True(t, ok)
	assert.Equal(t, 1, es.Total(condition.SpeedReduction))
}

func TestEffects_AddIsIdempotentAndRemoveUnknownIsNoop(t *testing.T) {
	e := condition.NewEffect(condition.SpeedReduction, "mage", 2)
	es := condition.Effects{}.Add(e).Add(e)
	assert.Len(t, es, 1)
	assert.Len(t, es.Remove("missing"), 1)
	assert.Empty(t, es.Remove(e.ID))
}

func TestEffects_CloneDoesNotAlias(t *testing.T) {
	es := condition.Effects{condition.NewEffect(condition.SpeedReduction, "a", 1)}
	c := es.Clone()
	c[0].Value = 9
	assert.Equal(t, 1, es[0].Value)
	assert.Nil(t, condition.Effects(nil).Clone())
}
