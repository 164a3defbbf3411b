package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:          "concordance",
		Short:        "Feedback agent for Learning by Concordance trainings",
		SilenceUsage: true,
	}
	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	root.AddCommand(serveCMD(&cfgPath), reindexCMD(&cfgPath), evaluateCMD(&cfgPath), migrateCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
