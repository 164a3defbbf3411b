package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/chat"
	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/indexer"
	"github.com/mohammad-safakhou/concordance/internal/rag"
	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
	"github.com/mohammad-safakhou/concordance/internal/visualization"
	"github.com/mohammad-safakhou/concordance/provider"
	"github.com/mohammad-safakhou/concordance/tools/embedding"
	"github.com/mohammad-safakhou/concordance/tools/web_search"
)

// Sampling temperatures per role, used when a model has none configured.
const (
	chatTemperature          = 0.5
	supervisorTemperature    = 0.3
	rankingTemperature       = 0.1
	rewriteTemperature       = 0.3
	evaluatorTemperature     = 0.3
	visualizationTemperature = 0.7
)

// app holds the process-wide components built from configuration.
type app struct {
	cfg       *config.Config
	models    *provider.Registry
	store     vectorstore.Store
	indexer   *indexer.Indexer
	embedder  provider.Embedder
	evaluator *evaluation.Evaluator
}

func loadApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	models, err := provider.NewRegistry(cfg.LLM)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, models: models}

	evalModel, err := models.Route(cfg.LLM.Routing.Evaluator, evaluatorTemperature)
	if err != nil {
		return nil, fmt.Errorf("evaluator route: %w", err)
	}
	a.evaluator = evaluation.NewEvaluator(evalModel, log.New(log.Writer(), "[EVALUATOR] ", log.LstdFlags))
	return a, nil
}

// openKnowledgeBase opens the vector store and the indexer over it.
func (a *app) openKnowledgeBase(ctx context.Context) error {
	embedder, err := a.models.Embedder()
	if err != nil {
		return err
	}
	store, err := vectorstore.New(ctx, a.cfg, log.New(log.Writer(), "[VECTORSTORE] ", log.LstdFlags))
	if err != nil {
		return err
	}
	a.embedder = embedding.NewEmbedding(embedder, embedding.DefaultBatchSize, embedding.DefaultConcurrency)
	a.store = store
	a.indexer = indexer.New(store, a.embedder, a.cfg.RAG)
	return nil
}

// knowledgeSearcher builds the agentic retrieval loop over the indexer.
func (a *app) knowledgeSearcher() (*rag.Agent, error) {
	ranking, err := a.models.Route(a.cfg.LLM.Routing.Ranking, rankingTemperature)
	if err != nil {
		return nil, fmt.Errorf("ranking route: %w", err)
	}
	rewrite, err := a.models.Route(a.cfg.LLM.Routing.Rewrite, rewriteTemperature)
	if err != nil {
		return nil, fmt.Errorf("rewrite route: %w", err)
	}
	var retriever rag.Retriever = rag.NewDenseRetriever(a.embedder, a.indexer)
	if a.cfg.RAG.Hybrid {
		retriever = rag.NewHybridRetriever(a.embedder, a.indexer)
	}
	return rag.NewAgent(retriever,
		rag.NewLLMRanker(ranking, log.New(log.Writer(), "[RANKER] ", log.LstdFlags)),
		rag.NewLLMRewriter(rewrite, log.New(log.Writer(), "[REWRITER] ", log.LstdFlags)),
		rag.WithTopK(a.cfg.RAG.TopK),
		rag.WithMaxRetries(a.cfg.RAG.MaxRetries),
	), nil
}

// chatDeps wires every tool the supervisor may call.
func (a *app) chatDeps() (chat.Deps, error) {
	chatModel, err := a.models.Route(a.cfg.LLM.Routing.Chat, chatTemperature)
	if err != nil {
		return chat.Deps{}, fmt.Errorf("chat route: %w", err)
	}
	supervisorModel, err := a.models.Route(a.cfg.LLM.Routing.Supervisor, supervisorTemperature)
	if err != nil {
		return chat.Deps{}, fmt.Errorf("supervisor route: %w", err)
	}
	vizModel, err := a.models.Route(a.cfg.LLM.Routing.Visualization, visualizationTemperature)
	if err != nil {
		return chat.Deps{}, fmt.Errorf("visualization route: %w", err)
	}
	deps := chat.Deps{
		Chat:          chatModel,
		Supervisor:    supervisorModel,
		Visualizer:    visualization.NewGenerator(vizModel, log.New(log.Writer(), "[VISUALIZATION] ", log.LstdFlags)),
		WebMaxResults: a.cfg.WebSearch.MaxResults,
		RAGMaxRetries: a.cfg.RAG.MaxRetries,
	}
	if a.cfg.WebSearch.Enabled() {
		web, err := web_search.NewWebSearcher(a.cfg.WebSearch, log.New(log.Writer(), "[WEBSEARCH] ", log.LstdFlags))
		if err != nil {
			return chat.Deps{}, err
		}
		deps.Web = web
	} else {
		log.Printf("web search disabled: no provider key configured")
	}
	if a.indexer != nil {
		kb, err := a.knowledgeSearcher()
		if err != nil {
			return chat.Deps{}, err
		}
		deps.Knowledge = kb
	}
	return deps, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("close vector store: %v", err)
		}
	}
}
