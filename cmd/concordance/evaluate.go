package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func evaluateCMD(cfgPath *string) *cobra.Command {
	var evaluate = &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the learner on every training module and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			ev, err := a.evaluator.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		},
	}
	return evaluate
}
