package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"persistgo/config"
	"persistgo/persistence"
	"persistgo/storage"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfgFile  string
	settings config.Settings
	source   *storage.Source
	facade   *persistence.Facade
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "persistctl",
		Short:        "Inspect persistgo databases and preference files.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.facade == nil {
				return nil
			}
			return a.facade.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "settings file (default is $XDG_CONFIG_HOME/persistgo/persistgo.yaml)")
	cmd.PersistentFlags().String("dialect", "", `database dialect ("sqlite", "postgres", "mysql", "mongodb")`)
	cmd.PersistentFlags().String("driver", "", "database/sql driver override")
	cmd.PersistentFlags().String("dir", "", "directory holding sqlite databases")
	cmd.PersistentFlags().String("dsn", "", "connection string template, {name} is the database")
	cmd.PersistentFlags().String("log-level", "", `log level ("debug", "info", "warn", "error")`)

	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newExecCmd(a))
	cmd.AddCommand(newPrefCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := config.Load(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	level, err := s.Level()
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	src := s.Source()
	src.Logger = logger
	if err := src.Validate(); err != nil {
		return err
	}

	a.settings = s
	a.source = src
	a.facade = persistence.New(persistence.WithLogger(logger))
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
