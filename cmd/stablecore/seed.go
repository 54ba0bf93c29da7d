package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"stablecore/internal/appconfig"
	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

func openService(ctx context.Context, cfgPath string) (*core.Service, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.Apply()
	store, err := core.OpenStore(ctx, core.WithStoreLogger(pslog.Ctx(ctx)))
	if err != nil {
		return nil, err
	}
	return core.NewService(store,
		core.WithServiceLogger(pslog.Ctx(ctx)),
		core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("stablecore_cli_metrics")),
	), nil
}

func newSeedCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with a demo stable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Store().Close() }()
			logger := pslog.Ctx(ctx)

			// Bootstrap profile. Everything after this goes through guarded
			// commands.
			var admin domain.UserProfile
			err = svc.Store().RunInTransaction(ctx, func(tx *core.Transaction) error {
				var err error
				admin, err = tx.CreateUser(domain.UserProfile{Name: "Demo Admin"})
				if err != nil {
					return err
				}
				tx.SetCurrentUser(admin.ID)
				return nil
			})
			if err != nil {
				return err
			}

			stable, res := svc.UpsertStable(ctx, core.UpsertStableInput{Name: "Demo Stable", Location: "Demo Lane 1"})
			if !res.Success {
				return fmt.Errorf("create stable: %s", res.Reason)
			}
			if _, res = svc.UpsertHorse(ctx, core.UpsertHorseInput{Name: "Blansch", Age: "9"}); !res.Success {
				return fmt.Errorf("create horse: %s", res.Reason)
			}
			if _, res = svc.UpsertPaddock(ctx, core.UpsertPaddockInput{Name: "North paddock"}); !res.Success {
				return fmt.Errorf("create paddock: %s", res.Reason)
			}
			today := svc.Store().Now().Format(domain.DateLayout)
			for _, slot := range []domain.Slot{domain.SlotMorning, domain.SlotLunch, domain.SlotEvening} {
				if _, res = svc.CreateAssignment(ctx, core.CreateAssignmentInput{Date: today, Slot: slot}); !res.Success {
					return fmt.Errorf("create assignment: %s", res.Reason)
				}
			}

			logger.Info("seeded demo stable", "stable", stable.ID, "admin", admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	return cmd
}
