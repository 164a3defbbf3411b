// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ToolInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concordance",
		Name:      "tool_invocations_total",
		Help:      "Supervisor tool invocations by tool and result status.",
	}, []string{"tool", "status"})

	RAGAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "concordance",
		Name:      "rag_attempts_total",
		Help:      "Retrieval attempts made by the agentic search loop.",
	})

	RAGOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concordance",
		Name:      "rag_searches_total",
		Help:      "Agentic searches by final status and whether relevant chunks were found.",
	}, []string{"status", "found_relevant"})

	ChatTurnDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "concordance",
		Name:      "chat_turn_duration_seconds",
		Help:      "Latency of chat turns.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"kind"})

	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concordance",
		Name:      "evaluations_total",
		Help:      "Evaluation runs by outcome.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(ToolInvocations, RAGAttempts, RAGOutcomes, ChatTurnDuration, Evaluations)
}

// ObserveTool counts one tool invocation.
func ObserveTool(tool, status string) {
	ToolInvocations.WithLabelValues(tool, status).Inc()
}

// ObserveSearch counts one finished agentic search.
func ObserveSearch(status string, foundRelevant bool) {
	RAGOutcomes.WithLabelValues(status, strconv.FormatBool(foundRelevant)).Inc()
}

// ObserveTurn records the latency of a chat turn started at start.
func ObserveTurn(kind string, start time.Time) {
	ChatTurnDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
