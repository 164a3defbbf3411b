package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/concordance/internal/indexer"
	srv "github.com/mohammad-safakhou/concordance/internal/server"
	"github.com/mohammad-safakhou/concordance/internal/telemetry"
	"github.com/mohammad-safakhou/concordance/session"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			tele, err := telemetry.Setup(ctx, a.cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				if err := tele.Shutdown(context.Background()); err != nil {
					log.Printf("telemetry shutdown: %v", err)
				}
			}()

			if err := a.openKnowledgeBase(ctx); err != nil {
				return err
			}
			// Serve even when indexing fails; searches
			// then report no documents.
			if err := a.indexer.EnsureFresh(ctx); err != nil {
				log.Printf("knowledge base not ready: %v", err)
			}
			if spec := a.cfg.RAG.ReindexSchedule; spec != "" {
				sched, err := indexer.NewScheduler(a.indexer, spec, nil)
				if err != nil {
					return err
				}
				go sched.Run(ctx)
			}

			deps, err := a.chatDeps()
			if err != nil {
				return err
			}
			store, err := session.NewStore(ctx, a.cfg.Storage)
			if err != nil {
				return err
			}
			sessions := session.NewRegistry(store, deps, nil)
			defer sessions.Close()

			e := srv.New(a.cfg.Server, srv.Deps{Evaluator: a.evaluator, Sessions: sessions, Knowledge: a.indexer})
			addr := serveAddr
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			return srv.Run(ctx, e, addr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.address)")
	return serve
}
