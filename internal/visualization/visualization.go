// Package visualization turns a learner's request into a rendered chart.
// A chat model chooses what to plot; go-chart draws it.
package visualization

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/structured"
	"github.com/mohammad-safakhou/concordance/provider"
)

var ErrInvalidChart = errors.New("invalid chart specification")

const (
	KindBar = "bar"
	KindPie = "pie"

	maxHistory    = 10
	maxTurnRunes  = 2000
	coverageTitle = "Distribution de la couverture des éléments experts"
	imageWidth    = 1024
	imageHeight   = 640
	pieSize       = 768
)

// ChartSpec is what the model decides to draw.
type ChartSpec struct {
	Kind    string    `json:"kind" jsonschema:"required,enum=bar,enum=pie"`
	Title   string    `json:"title" jsonschema:"required" jsonschema_description:"Chart title in French"`
	Labels  []string  `json:"labels" jsonschema:"required" jsonschema_description:"Category labels in French"`
	Values  []float64 `json:"values" jsonschema:"required" jsonschema_description:"One non-negative value per label"`
	Summary string    `json:"summary" jsonschema:"required" jsonschema_description:"One sentence describing what the chart shows"`
}

func (s ChartSpec) validate() error {
	if len(s.Labels) == 0 || len(s.Labels) != len(s.Values) {
		return fmt.Errorf("%w: %d labels for %d values", ErrInvalidChart, len(s.Labels), len(s.Values))
	}
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: value %v", ErrInvalidChart, v)
		}
	}
	return nil
}

// Turn is one prior conversation message.
type Turn struct {
	Type    string `json:"type"` // human or ai
	Content string `json:"content"`
}

// Request describes what the learner wants to see.
type Request struct {
	UserRequest       string
	History           []Turn
	DataContext       string
	IncludeEvaluation bool
}

// Output is the tool payload: a base64 PNG and the plotted numbers.
type Output struct {
	ImageBase64 string         `json:"image_base64"`
	SummaryData map[string]any `json:"summary_data"`
}

var chartSchema = structured.MustFor[ChartSpec]("chart_spec")

type Generator struct {
	model  provider.ChatModel
	logger *log.Logger
}

func NewGenerator(model provider.ChatModel, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[VISUALIZATION] ", log.LstdFlags)
	}
	return &Generator{model: model, logger: logger}
}

// Generate asks the model for a chart and renders it. When the model fails
// and evaluation data was requested, the coverage distribution is charted
// instead.
func (g *Generator) Generate(ctx context.Context, req Request, ev evaluation.Evaluations) (Output, error) {
	spec, err := g.plan(ctx, req, ev)
	if err == nil {
		err = spec.validate()
	}
	if err != nil {
		if !req.IncludeEvaluation || len(ev) == 0 {
			return Output{}, err
		}
		g.logger.Printf("chart planning failed, using coverage chart: %v", err)
		spec = CoverageSpec(ev)
	}
	return Render(spec)
}

func (g *Generator) plan(ctx context.Context, req Request, ev evaluation.Evaluations) (ChartSpec, error) {
	user, err := buildUserPrompt(req, ev)
	if err != nil {
		return ChartSpec{}, err
	}
	return structured.Generate[ChartSpec](ctx, g.model, chartSchema, []provider.Message{
		{Role: provider.RoleSystem, Content: chartPrompt},
		{Role: provider.RoleUser, Content: user},
	})
}

func buildUserPrompt(req Request, ev evaluation.Evaluations) (string, error) {
	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	var parts []string
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := "Assistant"
		if t.Type == "human" {
			role = "User"
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", role, truncateRunes(t.Content, maxTurnRunes)))
	}
	if req.DataContext != "" {
		parts = append(parts, "[Assistant]: [Relevant Context for Visualization]:\n"+req.DataContext)
	}
	conversation := "No previous context."
	if len(parts) > 0 {
		conversation = strings.Join(parts, "\n\n")
	}

	request := req.UserRequest
	if req.DataContext != "" {
		request += "\n\n[Data to Visualize]:\n" + req.DataContext
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# USER REQUEST\n%s\n\n# CONVERSATION CONTEXT\n%s\n\n", request, conversation)
	if req.IncludeEvaluation {
		sample, err := json.MarshalIndent(ev.Sample(), "", "  ")
		if err != nil {
			return "", err
		}
		counts, _ := json.Marshal(ev.CoverageCounts())
		fmt.Fprintf(&b, "# EVALUATION DATA SAMPLE\n%s\n\n# COVERAGE COUNTS (all modules)\n%s\n\n", sample, counts)
	}
	b.WriteString("Describe the chart to draw.")
	return b.String(), nil
}

// CoverageSpec charts how many scenarios reached each coverage level.
func CoverageSpec(ev evaluation.Evaluations) ChartSpec {
	counts := ev.CoverageCounts()
	labels := []string{"Élevée", "Moyenne", "Faible"}
	values := make([]float64, len(evaluation.CoverageLevels))
	for i, level := range evaluation.CoverageLevels {
		values[i] = float64(counts[level])
	}
	return ChartSpec{
		Kind:    KindBar,
		Title:   coverageTitle,
		Labels:  labels,
		Values:  values,
		Summary: "Nombre de scénarios par niveau de couverture des éléments experts.",
	}
}

// Render draws spec as a PNG.
func Render(spec ChartSpec) (Output, error) {
	if err := spec.validate(); err != nil {
		return Output{}, err
	}
	values := make([]chart.Value, len(spec.Labels))
	total := 0.0
	for i, l := range spec.Labels {
		values[i] = chart.Value{Label: l, Value: spec.Values[i]}
		total += spec.Values[i]
	}

	var buf bytes.Buffer
	var err error
	if spec.Kind == KindPie && total > 0 {
		pie := chart.PieChart{
			Title:  spec.Title,
			Width:  pieSize,
			Height: pieSize,
			Values: values,
		}
		err = pie.Render(chart.PNG, &buf)
	} else {
		top := 1.0
		for _, v := range spec.Values {
			top = math.Max(top, v)
		}
		bar := chart.BarChart{
			Title:      spec.Title,
			Background: chart.Style{Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
			Width:      imageWidth,
			Height:     imageHeight,
			BarWidth:   barWidth(len(values)),
			YAxis: chart.YAxis{
				Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			},
			Bars: values,
		}
		err = bar.Render(chart.PNG, &buf)
	}
	if err != nil {
		return Output{}, fmt.Errorf("render chart: %w", err)
	}

	summary := make(map[string]any, len(spec.Labels)+1)
	for i, l := range spec.Labels {
		summary[l] = spec.Values[i]
	}
	if spec.Summary != "" {
		summary["description"] = spec.Summary
	}
	return Output{ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()), SummaryData: summary}, nil
}

func barWidth(n int) int {
	w := (imageWidth - 200) / (n*2 + 1)
	if w > 120 {
		w = 120
	}
	if w < 10 {
		w = 10
	}
	return w
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
