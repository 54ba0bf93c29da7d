package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stablecore/pkg/domain"
)

func newExportCmd() *cobra.Command {
	var cfgPath, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the persisted state slice as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Store().Close() }()

			data, err := json.MarshalIndent(svc.Store().ExportPersisted(), "", "  ")
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the persisted state slice from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var st domain.PersistedState
			if err := json.Unmarshal(raw, &st); err != nil {
				return fmt.Errorf("decode export: %w", err)
			}

			svc, err := openService(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Store().Close() }()
			if err := svc.Store().ImportPersisted(st); err != nil {
				return err
			}
			svc.Store().Flush(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	return cmd
}
