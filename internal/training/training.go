// Package training serves the embedded training modules the learner was
// evaluated on.
package training

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed data/*.txt
var data embed.FS

// Module is one training module with its shared objectives.
type Module struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Objectives string `json:"objectives"`
}

// Section selects part of a module for the training content tool.
type Section string

const (
	SectionAll        Section = "all"
	SectionScenarios  Section = "scenarios"
	SectionObjectives Section = "objectives"
)

const Count = 3

var catalogNames = [Count]string{
	"Module 1: Diagnostic et suivi de la migraine",
	"Module 2: Traitement aigu et gestion des habitudes de vie de la migraine",
	"Module 3: Traitement préventif de la migraine",
}

// toolNames are the shorter labels reported to the chat model.
var toolNames = [Count]string{
	"Module 1: Diagnostic et suivi de la migraine",
	"Module 2: Traitement aigu et gestion des habitudes de vie",
	"Module 3: Traitement préventif de la migraine",
}

const scenarioMarker = "<Situation"

func read(name string) string {
	b, err := data.ReadFile("data/" + name)
	if err != nil {
		panic(fmt.Sprintf("training: embedded %s missing: %v", name, err))
	}
	return string(b)
}

// ID returns the evaluation key of module n, e.g. "training_2".
func ID(n int) string { return fmt.Sprintf("training_%d", n) }

// Objectives returns the learning objectives shared by every module.
func Objectives() string { return read("training_objectives.txt") }

// Content returns the raw text of module n (1-based).
func Content(n int) (string, error) {
	if n < 1 || n > Count {
		return "", fmt.Errorf("Invalid module number: %d. Must be 1, 2, or 3.", n)
	}
	return read(fmt.Sprintf("training_%d.txt", n)), nil
}

// Modules lists every module in order.
func Modules() []Module {
	objectives := Objectives()
	out := make([]Module, 0, Count)
	for n := 1; n <= Count; n++ {
		content, _ := Content(n)
		out = append(out, Module{ID: ID(n), Name: catalogNames[n-1], Content: content, Objectives: objectives})
	}
	return out
}

// Excerpt is a module section as returned by the training content tool.
type Excerpt struct {
	Number  int
	Name    string
	Section Section
	Content string
}

// Lookup returns the requested section of module n. Unknown sections fall
// back to the whole module.
func Lookup(n int, section Section) (Excerpt, error) {
	content, err := Content(n)
	if err != nil {
		return Excerpt{}, err
	}
	if section == "" {
		section = SectionAll
	}
	switch section {
	case SectionObjectives:
		content = Objectives()
	case SectionScenarios:
		if i := strings.Index(content, scenarioMarker); i >= 0 {
			content = content[i:]
		}
	default:
		section = SectionAll
	}
	return Excerpt{Number: n, Name: toolNames[n-1], Section: section, Content: content}, nil
}
