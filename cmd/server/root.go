package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/skilltree/internal/config"
	"github.com/sakif/skilltree/internal/server"
)

// app is the state shared by every subcommand, filled in before any of them
// runs.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "skilltree",
		Short:         "Gamified habit tracker API",
		Long:          "skilltree tracks XP across sixteen skills, daily challenges, titles, badges and a leaderboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a TOML config file")

	cmd.AddCommand(
		newServeCmd(a),
		newResetCmd(a),
		newCatalogCmd(a),
	)
	return cmd
}

func (a *app) load(logOutput io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Log, logOutput)
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	srv, err := server.New(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	return srv.Start()
}
