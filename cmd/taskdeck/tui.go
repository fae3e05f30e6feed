package main

import (
	"context"

	"github.com/spf13/cobra"

	"taskdeck/internal/collection"
	"taskdeck/internal/mutation"
	"taskdeck/internal/session"
	"taskdeck/internal/ui"
)

func tuiCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := clientLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			c, err := openClient(cfg, logger, local)
			if err != nil {
				return err
			}
			defer c.close()

			ctx := context.Background()
			if err := c.session.Restore(ctx); err != nil {
				logger.Warn("restore session", "error", err)
			}
			tasks := collection.New(c.store, c.session)
			unsubscribe := c.session.Subscribe(func(s session.State) {
				if !s.SignedIn {
					tasks.Reset()
				}
			})
			defer unsubscribe()

			return ui.Run(ctx, ui.Options{
				Session:     c.session,
				Tasks:       tasks,
				Coordinator: mutation.New(c.store, tasks, c.session, logger),
				Keys:        cfg.Keys,
				Criteria:    cfg.Criteria(),
				Logger:      logger,
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "use the local database in-process instead of the API")
	return cmd
}
