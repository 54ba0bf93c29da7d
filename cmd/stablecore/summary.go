package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard view of the selected stable as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Store().Close() }()

			view, ok := svc.Dashboard()
			if !ok {
				return fmt.Errorf("no stable selected in persisted state")
			}
			out, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	return cmd
}
