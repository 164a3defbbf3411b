package main

import (
	"log"

	"github.com/spf13/cobra"
)

func reindexCMD(cfgPath *string) *cobra.Command {
	var force bool
	var reindex = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge base from the documents directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.openKnowledgeBase(ctx); err != nil {
				return err
			}
			if !force {
				return a.indexer.EnsureFresh(ctx)
			}
			n, err := a.indexer.Reindex(ctx)
			if err != nil {
				return err
			}
			log.Printf("indexed %d chunks", n)
			return nil
		},
	}
	reindex.Flags().BoolVar(&force, "force", true, "rebuild even when the documents are unchanged")
	return reindex
}
