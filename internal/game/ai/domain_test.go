package ai_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/character"
)

func minimalDomain() *ai.Domain {
	return &ai.Domain{
		ID:      "test",
		Profile: character.ProfileStill,
		Tasks:   []*ai.Task{{ID: ai.RootTask}},
		Methods: []*ai.Method{{
			TaskID:   ai.RootTask,
			ID:       "m1",
			Subtasks: []string{"op1"},
		}},
		Operators: []*ai.Operator{{ID: "op1", Action: "pass"}},
	}
}

func TestDomain_Validate_RejectsEmpty(t *testing.T) {
	d := &ai.Domain{}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty Domain")
	}
}

func TestDomain_Validate_AcceptsMinimal(t *testing.T) {
	if err := minimalDomain().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDomain_Validate_Rejections(t *testing.T) {
	cases := map[string]func(d *ai.Domain){
		"unknown profile":      func(d *ai.Domain) { d.Profile = "sniper" },
		"empty profile":        func(d *ai.Domain) { d.Profile = "" },
		"missing root task":    func(d *ai.Domain) { d.Tasks[0].ID = "other"; d.Methods[0].TaskID = "other" },
		"unknown action":       func(d *ai.Domain) { d.Operators[0].Action = "teleport" },
		"unknown targeting":    func(d *ai.Domain) { d.Targeting = "loudest" },
		"unknown precondition": func(d *ai.Domain) { d.Methods[0].Preconditions = []string{"is_raining"} },
		"dangling subtask":     func(d *ai.Domain) { d.Methods[0].Subtasks = []string{"ghost"} },
		"empty subtasks":       func(d *ai.Domain) { d.Methods[0].Subtasks = nil },
		"duplicate task": func(d *ai.Domain) {
			d.Tasks = append(d.Tasks, &ai.Task{ID: ai.RootTask})
		},
		"duplicate operator": func(d *ai.Domain) {
			d.Operators = append(d.Operators, &ai.Operator{ID: "op1", Action: "dodge"})
		},
		"operator shadows task": func(d *ai.Domain) {
			d.Operators = append(d.Operators, &ai.Operator{ID: ai.RootTask, Action: "dodge"})
		},
		"method for unknown task": func(d *ai.Domain) {
			d.Methods = append(d.Methods, &ai.Method{TaskID: "nowhere", ID: "m2", Subtasks: []string{"op1"}})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := minimalDomain()
			mutate(d)
			if err := d.Validate(); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestDomain_OperatorByID(t *testing.T) {
	d := minimalDomain()
	op, ok := d.OperatorByID("op1")
	if !ok || op.Action != "pass" {
		t.Fatal("expected to find operator op1")
	}
	if _, ok := d.OperatorByID("missing"); ok {
		t.Fatal("expected not found")
	}
}

func TestDomain_MethodsForTask_ReturnsOrdered(t *testing.T) {
	d := &ai.Domain{
		Methods: []*ai.Method{
			{TaskID: "fight", ID: "m1", Subtasks: []string{"op1"}},
			{TaskID: "fight", ID: "m2", Subtasks: []string{"op2"}},
			{TaskID: "other", ID: "m3", Subtasks: []string{"op3"}},
		},
	}
	ms := d.MethodsForTask("fight")
	if len(ms) != 2 || ms[0].ID != "m1" || ms[1].ID != "m2" {
		t.Fatalf("unexpected methods: %+v", ms)
	}
	if got := d.MethodsForTask("none"); len(got) != 0 {
		t.Fatalf("expected no methods, got %d", len(got))
	}
}

func TestBuiltinDomains_CoverEveryProfile(t *testing.T) {
	domains, err := ai.BuiltinDomains()
	if err != nil {
		t.Fatalf("BuiltinDomains: %v", err)
	}
	seen := make(map[character.AIProfile]bool)
	for _, d := range domains {
		if seen[d.Profile] {
			t.Fatalf("profile %q shipped twice", d.Profile)
		}
		seen[d.Profile] = true
	}
	for _, p := range character.Profiles() {
		if !seen[p] {
			t.Errorf("no builtin domain for profile %q", p)
		}
	}
}

const stillYAML = `domain:
  id: idle
  profile: still
  tasks:
    - id: behave
  methods:
    - task: behave
      id: wait
      subtasks: [do_nothing]
  operators:
    - id: do_nothing
      action: pass
`

func TestLoadDomains_ParsesYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"idle.yaml":  {Data: []byte(stillYAML)},
		"notes.txt":  {Data: []byte("ignored")},
		"sub/x.yaml": {Data: []byte("not: [valid")},
	}
	domains, err := ai.LoadDomains(fsys)
	if err != nil {
		t.Fatalf("LoadDomains: %v", err)
	}
	if len(domains) != 1 || domains[0].ID != "idle" || domains[0].Profile != character.ProfileStill {
		t.Fatalf("unexpected domains: %+v", domains)
	}
}

func TestLoadDomains_Empty(t *testing.T) {
	domains, err := ai.LoadDomains(fstest.MapFS{})
	if err != nil || domains != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", domains, err)
	}
}

func TestLoadDomains_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":    "domain: [",
		"missing key": "id: idle\n",
		"invalid":     strings.Replace(stillYAML, "action: pass", "action: fly", 1),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ai.LoadDomains(fstest.MapFS{"d.yaml": {Data: []byte(data)}})
			if err == nil || !strings.Contains(err.Error(), "d.yaml") {
				t.Fatalf("expected error naming the file, got %v", err)
			}
		})
	}
}

func TestProperty_Validate_UnknownActionsRejected(t *testing.T) {
	known := map[string]bool{
		"pass": true, "stand_up": true, "approach": true, "shove": true, "attack": true,
		"disengage": true, "dodge": true, "flee": true, "kite": true,
	}
	rapid.Check(t, func(rt *rapid.T) {
		action := rapid.StringMatching(`[a-z_]{1,12}`).Draw(rt, "action")
		d := minimalDomain()
		d.Operators[0].Action = action
		err := d.Validate()
		if known[action] && err != nil {
			rt.Fatalf("known action %q rejected: %v", action, err)
		}
		if !known[action] && err == nil {
			rt.Fatalf("unknown action %q accepted", action)
		}
	})
}
