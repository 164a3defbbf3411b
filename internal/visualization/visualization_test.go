package visualization

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/provider"
)

type scriptedModel struct {
	reply string
	err   error
	got   provider.ChatRequest
}

func (m *scriptedModel) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	m.got = req
	if m.err != nil {
		return provider.ChatResponse{}, m.err
	}
	return provider.ChatResponse{Content: m.reply}, nil
}

func sampleEvaluations() evaluation.Evaluations {
	sc := func(level string) evaluation.Scenario {
		return evaluation.Scenario{Coverage: evaluation.Coverage{ScoreAssessment: level}}
	}
	return evaluation.Evaluations{
		"training_1": {Situations: map[string]evaluation.Situation{
			"situation 1": {Scenarios: map[string]evaluation.Scenario{"scenario 1": sc("High"), "scenario 2": sc("Low")}},
		}},
		"training_2": {Situations: map[string]evaluation.Situation{
			"situation 1": {Scenarios: map[string]evaluation.Scenario{"scenario 1": sc("High")}},
		}},
	}
}

func decodePNG(t *testing.T, out Output) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		t.Fatalf("image is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("image is not a PNG: %v", err)
	}
}

var quiet = log.New(io.Discard, "", 0)

func TestGenerateRendersModelChart(t *testing.T) {
	model := &scriptedModel{reply: `{"kind":"pie","title":"Répartition des triptans","labels":["Sumatriptan","Rizatriptan"],"values":[3,1],"summary":"Deux molécules."}`}
	out, err := NewGenerator(model, quiet).Generate(context.Background(), Request{
		UserRequest: "fais un graphique",
		DataContext: "Sumatriptan 3, Rizatriptan 1",
		History:     []Turn{{Type: "human", Content: "bonjour"}, {Type: "ai", Content: "salut"}},
	}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	decodePNG(t, out)
	if out.SummaryData["Sumatriptan"] != 3.0 || out.SummaryData["description"] != "Deux molécules." {
		t.Fatalf("unexpected summary %v", out.SummaryData)
	}
	user := model.got.Messages[1].Content
	if !strings.Contains(user, "[Data to Visualize]:\nSumatriptan 3") || !strings.Contains(user, "[User]: bonjour") {
		t.Fatalf("prompt missing context:\n%s", user)
	}
	if strings.Contains(user, "EVALUATION DATA SAMPLE") {
		t.Fatalf("evaluation data must only be sent when requested")
	}
}

func TestGenerateFallsBackToCoverageChart(t *testing.T) {
	model := &scriptedModel{err: errors.New("timeout")}
	out, err := NewGenerator(model, quiet).Generate(context.Background(), Request{UserRequest: "mes scores", IncludeEvaluation: true}, sampleEvaluations())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	decodePNG(t, out)
	if out.SummaryData["Élevée"] != 2.0 || out.SummaryData["Faible"] != 1.0 || out.SummaryData["Moyenne"] != 0.0 {
		t.Fatalf("unexpected coverage counts %v", out.SummaryData)
	}
}

func TestGenerateWithoutEvaluationPropagatesError(t *testing.T) {
	model := &scriptedModel{reply: `{"kind":"bar","title":"x","labels":["a","b"],"values":[1],"summary":"s"}`}
	_, err := NewGenerator(model, quiet).Generate(context.Background(), Request{UserRequest: "tableau"}, sampleEvaluations())
	if !errors.Is(err, ErrInvalidChart) {
		t.Fatalf("expected invalid chart error, got %v", err)
	}
}

func TestRenderAllZeroPieFallsBackToBars(t *testing.T) {
	out, err := Render(ChartSpec{Kind: KindPie, Title: "Vide", Labels: []string{"a", "b"}, Values: []float64{0, 0}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	decodePNG(t, out)
}
