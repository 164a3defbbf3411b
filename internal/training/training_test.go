package training

import (
	"strings"
	"testing"
)

func TestModulesCatalog(t *testing.T) {
	mods := Modules()
	if len(mods) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(mods))
	}
	for i, m := range mods {
		if m.ID != ID(i+1) || m.Content == "" || !strings.Contains(m.Objectives, "Différencier les types de céphalées") {
			t.Fatalf("unexpected module %d: id=%s name=%s", i, m.ID, m.Name)
		}
	}
	if mods[1].Name != "Module 2: Traitement aigu et gestion des habitudes de vie de la migraine" {
		t.Fatalf("unexpected catalog name %q", mods[1].Name)
	}
}

func TestLookupSections(t *testing.T) {
	all, err := Lookup(2, SectionAll)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if all.Name != "Module 2: Traitement aigu et gestion des habitudes de vie" {
		t.Fatalf("tool name mismatch: %q", all.Name)
	}

	sc, _ := Lookup(1, SectionScenarios)
	if !strings.HasPrefix(sc.Content, "<Situation") || len(sc.Content) >= len(mustContent(t, 1)) {
		t.Fatalf("scenarios must start at the first situation marker")
	}

	obj, _ := Lookup(3, SectionObjectives)
	if obj.Content != Objectives() {
		t.Fatalf("objectives section must return the objectives text")
	}

	odd, _ := Lookup(1, "expert panel")
	if odd.Section != SectionAll || odd.Content != mustContent(t, 1) {
		t.Fatalf("unknown section must fall back to all")
	}
}

func TestLookupRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{0, 4, -1} {
		_, err := Lookup(n, SectionAll)
		if err == nil {
			t.Fatalf("expected error for module %d", n)
		}
	}
	if _, err := Lookup(4, SectionAll); err.Error() != "Invalid module number: 4. Must be 1, 2, or 3." {
		t.Fatalf("unexpected message %q", err)
	}
}

func mustContent(t *testing.T, n int) string {
	t.Helper()
	c, err := Content(n)
	if err != nil {
		t.Fatalf("Content(%d): %v", n, err)
	}
	return c
}
