// Package evaluation assesses the learner's answers to every training module
// against the expert panel.
package evaluation

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/concordance/internal/metrics"
	"github.com/mohammad-safakhou/concordance/internal/structured"
	"github.com/mohammad-safakhou/concordance/internal/telemetry"
	"github.com/mohammad-safakhou/concordance/internal/training"
	"github.com/mohammad-safakhou/concordance/provider"
)

const maxParallel = 3

var evaluationSchema = structured.MustFor[TrainingEvaluation]("training_evaluation")

// Evaluator runs the per-module evaluations.
type Evaluator struct {
	model  provider.ChatModel
	logger *log.Logger
	// content is swapped in tests; it defaults to the embedded modules.
	content func(n int) (string, error)
}

func NewEvaluator(model provider.ChatModel, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = log.New(log.Writer(), "[EVALUATOR] ", log.LstdFlags)
	}
	return &Evaluator{model: model, logger: logger, content: training.Content}
}

// Run evaluates every module concurrently. Any failure fails the whole run.
func (e *Evaluator) Run(ctx context.Context) (Evaluations, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "evaluation.run")
	defer span.End()

	var mu sync.Mutex
	out := make(Evaluations, training.Count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for n := 1; n <= training.Count; n++ {
		g.Go(func() error {
			ev, err := e.evaluate(gctx, n)
			if err != nil {
				return fmt.Errorf("%s: %w", training.ID(n), err)
			}
			mu.Lock()
			out[training.ID(n)] = ev
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Evaluations.WithLabelValues("error").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.Int("evaluation.modules", len(out)))
	metrics.Evaluations.WithLabelValues("completed").Inc()
	return out, nil
}

func (e *Evaluator) evaluate(ctx context.Context, n int) (TrainingEvaluation, error) {
	content, err := e.content(n)
	if err != nil {
		return TrainingEvaluation{}, err
	}
	e.logger.Printf("evaluating %s", training.ID(n))
	ev, err := structured.Generate[TrainingEvaluation](ctx, e.model, evaluationSchema, []provider.Message{
		{Role: provider.RoleSystem, Content: evaluatorPrompt},
		{Role: provider.RoleUser, Content: content},
	})
	if err != nil {
		return TrainingEvaluation{}, err
	}
	e.logger.Printf("%s evaluation completed (%d situations)", training.ID(n), len(ev.Situations))
	return ev, nil
}
