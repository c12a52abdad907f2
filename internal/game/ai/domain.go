// Package ai implements the Hierarchical Task Network (HTN) planner that drives
// engine-controlled combatants.
//
// HTN planning decomposes abstract tasks into primitive operators via ordered
// methods. Method preconditions are named predicates over the live battle
// snapshot; operators map to the combat actions a Turn exposes. Decomposition
// is lazy: each precondition is checked against the state left by the
// operators already executed.
package ai

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/character"
)

// RootTask is the task every domain decomposes first.
const RootTask = "behave"

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
// Every named precondition must hold, checked in order; an empty list always
// applies.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
type Method struct {
	TaskID        string   `yaml:"task"`
	ID            string   `yaml:"id"`
	Preconditions []string `yaml:"preconditions"`
	Subtasks      []string `yaml:"subtasks"`
}

// Operator is a primitive action that maps directly to a combat action.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	// Narration is logged before the action runs; %s is the actor's name.
	Narration string `yaml:"narration"`
}

// Targeting policies pick the opponent a turn is planned against. A domain
// without one targets the nearest opponent.
const (
	TargetNearest = "nearest"
	TargetWeakest = "weakest"
)

// Domain holds one behavior profile's HTN domain.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string              `yaml:"id"`
	Profile     character.AIProfile `yaml:"profile"`
	Description string              `yaml:"description"`
	Targeting   string              `yaml:"targeting"`
	Tasks       []*Task             `yaml:"tasks"`
	Methods     []*Method           `yaml:"methods"`
	Operators   []*Operator         `yaml:"operators"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees a known profile, a declared root task,
// well-formed methods and operators with known actions and predicates, no
// duplicate IDs within any slice, and valid cross-references.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	if d.Profile == "" || !d.Profile.Valid() {
		return fmt.Errorf("ai.Domain %q: unknown profile %q", d.ID, d.Profile)
	}
	switch d.Targeting {
	case "", TargetNearest, TargetWeakest:
	default:
		return fmt.Errorf("ai.Domain %q: unknown targeting %q", d.ID, d.Targeting)
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("ai.Domain %q: must have at least one task", d.ID)
	}

	taskIDs := make(map[string]struct{}, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fmt.Errorf("ai.Domain %q: task has empty ID", d.ID)
		}
		if _, dup := taskIDs[t.ID]; dup {
			return fmt.Errorf("ai.Domain %q: duplicate task ID %q", d.ID, t.ID)
		}
		taskIDs[t.ID] = struct{}{}
	}
	if _, ok := taskIDs[RootTask]; !ok {
		return fmt.Errorf("ai.Domain %q: missing root task %q", d.ID, RootTask)
	}

	operatorIDs := make(map[string]struct{}, len(d.Operators))
	for _, op := range d.Operators {
		if op.ID == "" || op.Action == "" {
			return fmt.Errorf("ai.Domain %q: operator missing ID or Action", d.ID)
		}
		if _, dup := operatorIDs[op.ID]; dup {
			return fmt.Errorf("ai.Domain %q: duplicate operator ID %q", d.ID, op.ID)
		}
		if _, ok := actions[op.Action]; !ok {
			return fmt.Errorf("ai.Domain %q operator %q: unknown action %q", d.ID, op.ID, op.Action)
		}
		if _, clash := taskIDs[op.ID]; clash {
			return fmt.Errorf("ai.Domain %q: operator %q shadows a task", d.ID, op.ID)
		}
		operatorIDs[op.ID] = struct{}{}
	}

	methodIDs := make(map[string]struct{}, len(d.Methods))
	for _, m := range d.Methods {
		if m.TaskID == "" || m.ID == "" {
			return fmt.Errorf("ai.Domain %q: method missing TaskID or ID", d.ID)
		}
		if _, dup := methodIDs[m.ID]; dup {
			return fmt.Errorf("ai.Domain %q: duplicate method ID %q", d.ID, m.ID)
		}
		methodIDs[m.ID] = struct{}{}
		if _, ok := taskIDs[m.TaskID]; !ok {
			return fmt.Errorf("ai.Domain %q method %q: TaskID %q references unknown task", d.ID, m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			return fmt.Errorf("ai.Domain %q method %q: subtasks must not be empty", d.ID, m.ID)
		}
		for _, p := range m.Preconditions {
			if _, ok := predicates[p]; !ok {
				return fmt.Errorf("ai.Domain %q method %q: unknown precondition %q", d.ID, m.ID, p)
			}
		}
		for _, sub := range m.Subtasks {
			_, isTask := taskIDs[sub]
			_, isOp := operatorIDs[sub]
			if !isTask && !isOp {
				return fmt.Errorf("ai.Domain %q method %q: subtask %q is neither a task nor an operator", d.ID, m.ID, sub)
			}
		}
	}
	return nil
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

//go:embed domains/*.yaml
var builtinFS embed.FS

// BuiltinDomains returns the domains shipped with the binary, one per profile.
func BuiltinDomains() ([]*Domain, error) {
	sub, err := fs.Sub(builtinFS, "domains")
	if err != nil {
		return nil, fmt.Errorf("ai.BuiltinDomains: %w", err)
	}
	return LoadDomains(sub)
}

// LoadDomains reads all *.yaml files at the root of fsys in name order.
//
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if fsys holds no .yaml files.
func LoadDomains(fsys fs.FS) ([]*Domain, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Clean(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		var f yamlDomainFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: parsing %s: %w", e.Name(), err)
		}
		if f.Domain == nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s missing top-level 'domain' key", e.Name())
		}
		if err := f.Domain.Validate(); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s: %w", e.Name(), err)
		}
		domains = append(domains, f.Domain)
	}
	return domains, nil
}
