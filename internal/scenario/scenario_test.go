package scenario

import (
	"errors"
	"testing"
)

func TestDefaultRegistryHasPresets(t *testing.T) {
	r := Default()
	names := r.Names()
	want := []string{"simple_static", "training_1", "training_2", "training_3"}
	if len(names) != len(want) {
		t.Fatalf("unexpected preset names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d]=%s, want %s", i, names[i], want[i])
		}
	}
	for _, d := range Presets() {
		if err := d.Validate(); err != nil {
			t.Fatalf("preset %s invalid: %v", d.Name, err)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("atlantis")
	if !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndInvalid(t *testing.T) {
	r := NewRegistry()
	d := Descriptor{
		Name:  "calm",
		GridW: 4,
		GridH: 4,
		Wind:  WindInit{BaseDirection: [2]float64{0, -1}, BaseSpeed: 1},
	}
	if err := r.Register(d); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(d); err == nil {
		t.Fatal("expected duplicate registration error")
	}

	bad := []Descriptor{
		{Name: "", GridW: 4, GridH: 4, Wind: d.Wind},
		{Name: AllScenarios, GridW: 4, GridH: 4, Wind: d.Wind},
		{Name: "tiny", GridW: 2, GridH: 4, Wind: d.Wind},
		{Name: "still", GridW: 4, GridH: 4, Wind: WindInit{BaseSpeed: 1}},
		{Name: "dead", GridW: 4, GridH: 4, Wind: WindInit{BaseDirection: [2]float64{1, 0}}},
		{Name: "gusty", GridW: 4, GridH: 4, Wind: d.Wind, Evolution: WindEvolution{ChangeProbability: 1.5}},
	}
	for _, b := range bad {
		if err := r.Register(b); err == nil {
			t.Fatalf("expected validation error for %+v", b)
		}
	}
	if got := r.Names(); len(got) != 1 || got[0] != "calm" {
		t.Fatalf("registry changed by rejected descriptors: %v", got)
	}
}

func TestResolve(t *testing.T) {
	r := Default()

	all, err := r.Resolve("all")
	if err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	if len(all) != 4 || all[0] != "simple_static" {
		t.Fatalf("unexpected all: %v", all)
	}

	list, err := r.Resolve(" training_2, simple_static ")
	if err != nil {
		t.Fatalf("resolve list: %v", err)
	}
	if len(list) != 2 || list[0] != "training_2" || list[1] != "simple_static" {
		t.Fatalf("selector order not preserved: %v", list)
	}

	if _, err := r.Resolve("training_1,atlantis"); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
	if _, err := r.Resolve(" "); err == nil {
		t.Fatal("expected error for empty selector")
	}
	if _, err := r.Resolve(",,"); err == nil {
		t.Fatal("expected error for selector without names")
	}
}
