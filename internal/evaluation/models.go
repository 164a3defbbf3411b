package evaluation

import (
	"sort"

	"github.com/invopop/jsonschema"
)

type Coverage struct {
	ScoreAssessment string `json:"score_assessment" jsonschema:"required,enum=High,enum=Medium,enum=Low"`
	Justification   string `json:"justification" jsonschema:"required" jsonschema_description:"Two-line justification"`
}

type LogicalReasoning struct {
	Assessment string `json:"assessment" jsonschema:"required" jsonschema_description:"One line justification"`
	Rating     string `json:"rating" jsonschema:"required,enum=Satisfactory,enum=Unsatisfactory"`
}

type Communication struct {
	Assessment string `json:"assessment" jsonschema:"required" jsonschema_description:"Assessment of clarity, completeness, and professional language"`
	Rating     string `json:"rating" jsonschema:"required,enum=Excellent,enum=Good,enum=Needs Improvement"`
}

// SkillAssessment rates one learning objective within a scenario. The
// assessment and justification are null when the objective does not apply.
type SkillAssessment struct {
	PresentInScenario bool    `json:"present_in_scenario" jsonschema:"required"`
	LearnerAssessment *string `json:"learner_assessment"`
	Justification     *string `json:"justification"`
}

// JSONSchemaExtend makes the optional fields nullable.
func (SkillAssessment) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Properties.Set("learner_assessment", &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "string", Enum: []any{"Satisfactory", "Unsatisfactory"}},
			{Type: "null"},
		},
	})
	s.Properties.Set("justification", &jsonschema.Schema{
		Description: "One line justification",
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "null"},
		},
	})
}

type Scenario struct {
	ExpertKeyElements []string                   `json:"expert_key_elements" jsonschema:"required"`
	Coverage          Coverage                   `json:"coverage" jsonschema:"required"`
	LogicalReasoning  LogicalReasoning           `json:"logical_reasoning" jsonschema:"required"`
	Communication     Communication              `json:"communication" jsonschema:"required"`
	SkillsAssessment  map[string]SkillAssessment `json:"skills_assessment" jsonschema:"required"`
}

type Situation struct {
	Description string              `json:"description" jsonschema:"required" jsonschema_description:"One line description of the situation"`
	Scenarios   map[string]Scenario `json:"scenarios" jsonschema:"required"`
}

// TrainingEvaluation is the assessment of one training module.
type TrainingEvaluation struct {
	Situations map[string]Situation `json:"situations" jsonschema:"required"`
}

// Evaluations are keyed by module id ("training_1" .. "training_3").
type Evaluations map[string]TrainingEvaluation

// Keys returns the module ids in sorted order.
func (e Evaluations) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sample returns the first module only, used to show the model the shape of
// the data without the full payload.
func (e Evaluations) Sample() Evaluations {
	keys := e.Keys()
	if len(keys) == 0 {
		return Evaluations{}
	}
	return Evaluations{keys[0]: e[keys[0]]}
}

// CoverageLevels are the coverage ratings in display order.
var CoverageLevels = []string{"High", "Medium", "Low"}

// CoverageCounts counts scenarios per coverage rating across all modules.
func (e Evaluations) CoverageCounts() map[string]int {
	counts := map[string]int{"High": 0, "Medium": 0, "Low": 0}
	for _, tr := range e {
		for _, sit := range tr.Situations {
			for _, sc := range sit.Scenarios {
				if _, ok := counts[sc.Coverage.ScoreAssessment]; ok {
					counts[sc.Coverage.ScoreAssessment]++
				}
			}
		}
	}
	return counts
}
