package condition

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defs/*.yaml
var builtinDefs embed.FS

// Def is the static definition of a condition, loaded from YAML.
//
// The rule flags describe how the condition feeds advantage aggregation and
// movement cost; the rules engine reads them, it does not interpret scripts.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// StandUpCost is "half_speed" when the condition can be ended by spending movement.
	StandUpCost string `yaml:"stand_up_cost"`
	// AttackerDisadvantage imposes disadvantage on the bearer's own attacks.
	AttackerDisadvantage bool `yaml:"attacker_disadvantage"`
	// MeleeAttackers and RangedAttackers are "advantage", "disadvantage" or ""
	// for attacks made against the bearer.
	MeleeAttackers  string `yaml:"melee_attackers"`
	RangedAttackers string `yaml:"ranged_attackers"`
	// Crawling adds the base step cost to every step of movement.
	Crawling bool `yaml:"crawling"`
}

// Registry holds all known condition definitions keyed by ID.
type Registry struct {
	defs map[ID]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[ID]*Def)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Def) {
	if def == nil || def.ID == "" {
		panic("condition: Register requires a definition with an id")
	}
	r.defs[ID(def.ID)] = def
}

// Get returns the definition for id, or (nil, false) if not found.
func (r *Registry) Get(id ID) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns the registered definitions ordered by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Builtin returns the registry of the conditions the rules engine knows about.
//
// Postcondition: contains at least Prone and Blinded.
func Builtin() *Registry {
	reg, err := LoadFS(builtinDefs, "defs")
	if err != nil {
		panic("condition: embedded definitions are invalid: " + err.Error())
	}
	return reg
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every *.yaml file in dir of fsys. Unknown keys are rejected.
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("parsing %q: id is required", p)
		}
		reg.Register(&def)
	}
	return reg, nil
}
