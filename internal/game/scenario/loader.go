package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

//go:embed builtin/*.json
var builtin embed.FS

// Parse decodes a battle document written in YAML or JSON; yaml.v3 reads
// both. Unknown keys are rejected.
//
// Postcondition: the returned document has passed Validate and carries a
// non-empty BattleID.
func Parse(data []byte) (*Document, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("scenario: empty document")
	}
	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("scenario: decoding: %w", err)
	}
	if doc.BattleID == "" {
		doc.BattleID = "battle-" + uuid.NewString()
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", doc.BattleID, err)
	}
	return &doc, nil
}

// LoadFile reads and parses the document at path. A path of the form
// "builtin:<name>" loads one of the embedded scenarios.
func LoadFile(p string) (*Document, error) {
	if name, ok := strings.CutPrefix(p, "builtin:"); ok {
		return Builtin(name)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %q: %w", p, err)
	}
	return Parse(data)
}

// Builtin parses the embedded scenario with the given name.
func Builtin(name string) (*Document, error) {
	data, err := fs.ReadFile(builtin, path.Join("builtin", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("scenario: unknown builtin %q", name)
	}
	return Parse(data)
}

// BuiltinNames lists the embedded scenarios.
func BuiltinNames() []string {
	entries, _ := fs.ReadDir(builtin, "builtin")
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(out)
	return out
}

// Validate checks the document, reporting every problem found.
func (d *Document) Validate() error {
	var errs []error
	if d.GridSize.Width < 1 || d.GridSize.Height < 1 {
		errs = append(errs, fmt.Errorf("grid_size must be positive, got %dx%d", d.GridSize.Width, d.GridSize.Height))
		return errors.Join(errs...)
	}
	if len(d.PlayerCharacters) == 0 {
		errs = append(errs, errors.New("at least one player character is required"))
	}
	if len(d.Enemies) == 0 {
		errs = append(errs, errors.New("at least one enemy is required"))
	}

	inBounds := func(p grid.Position) bool {
		return p.X >= 0 && p.X < d.GridSize.Width && p.Y >= 0 && p.Y < d.GridSize.Height
	}
	for _, f := range d.TerrainFeatures {
		for _, c := range f.Positions {
			if !inBounds(c.pos()) {
				errs = append(errs, fmt.Errorf("terrain %q: cell %v is off the map", f.ID, []int(c)))
			}
		}
		for _, e := range f.Effects {
			t := grid.EffectType(e.Type)
			if !t.Valid() {
				errs = append(errs, fmt.Errorf("terrain %q: unknown effect %q", f.ID, e.Type))
				continue
			}
			if t == grid.HazardousArea {
				if e.Rules == nil {
					errs = append(errs, fmt.Errorf("terrain %q: hazardous_area needs rules", f.ID))
				} else if _, err := dice.Parse(e.Rules.DamageDice); err != nil {
					errs = append(errs, fmt.Errorf("terrain %q: %w", f.ID, err))
				}
			}
		}
	}

	for _, c := range append(append([]CombatantDef(nil), d.PlayerCharacters...), d.Enemies...) {
		if n := len(c.DefenseArea); n != 0 && n != 4 {
			errs = append(errs, fmt.Errorf("%s: defense_area needs 4 values [x1, y1, x2, y2], got %d", c.ID, n))
		}
	}

	g := grid.New(d.GridSize.Width, d.GridSize.Height, d.Features(), nil)
	ids := map[string]bool{}
	cells := map[grid.Position]string{}
	for _, s := range d.Sheets() {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if ids[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate combatant id %q", s.ID))
		}
		ids[s.ID] = true
		switch {
		case !inBounds(s.Start):
			errs = append(errs, fmt.Errorf("%s: position %v is off the map", s.ID, s.Start))
		case g.IsObstacle(s.Start):
			errs = append(errs, fmt.Errorf("%s: position %v is inside an obstacle", s.ID, s.Start))
		case cells[s.Start] != "":
			errs = append(errs, fmt.Errorf("%s: position %v is already taken by %s", s.ID, s.Start, cells[s.Start]))
		default:
			cells[s.Start] = s.ID
		}
	}
	return errors.Join(errs...)
}

// Features converts the terrain features into grid features.
func (d *Document) Features() []grid.Feature {
	out := make([]grid.Feature, 0, len(d.TerrainFeatures))
	for _, f := range d.TerrainFeatures {
		gf := grid.Feature{ID: f.ID, Name: f.Name, Color: f.Color}
		for _, c := range f.Positions {
			gf.Cells = append(gf.Cells, c.pos())
		}
		for _, e := range f.Effects {
			ge := grid.Effect{Type: grid.EffectType(e.Type), Description: e.Description}
			if e.Rules != nil {
				ge.Hazard = &grid.Hazard{DamageDice: e.Rules.DamageDice, DamageType: e.Rules.DamageType}
			}
			gf.Effects = append(gf.Effects, ge)
		}
		out = append(out, gf)
	}
	return out
}

// Sheets returns the player sheets followed by the enemy sheets.
func (d *Document) Sheets() []character.Sheet {
	out := make([]character.Sheet, 0, len(d.PlayerCharacters)+len(d.Enemies))
	for _, c := range d.PlayerCharacters {
		out = append(out, c.Sheet(character.FactionPlayer))
	}
	for _, c := range d.Enemies {
		out = append(out, c.Sheet(character.FactionEnemy))
	}
	return out
}

// Characters builds fresh combatants for the document.
func (d *Document) Characters() []*character.Character {
	sheets := d.Sheets()
	out := make([]*character.Character, len(sheets))
	for i, s := range sheets {
		out[i] = character.New(s)
	}
	return out
}
