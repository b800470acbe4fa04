package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"persistgo/config"
)

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func printYAML(cmd *cobra.Command, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <database> <sql> [args...]",
		Short: "Run a query and print the rows as YAML",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := a.facade.RawQuery(ctx, a.source, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			rows, err := q.Query(ctx, args[1], stringArgs(args[2:])...)
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()

			out := []map[string]any{}
			for rows.Next() {
				row := map[string]any{}
				if err := rows.MapScan(row); err != nil {
					return err
				}
				for k, v := range row {
					if b, ok := v.([]byte); ok {
						row[k] = string(b)
					}
				}
				out = append(out, row)
			}
			if err := rows.Err(); err != nil {
				return err
			}
			return printYAML(cmd, out)
		},
	}
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <database> <sql> [args...]",
		Short: "Run a statement and print the number of affected rows",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := a.facade.RawQuery(ctx, a.source, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			res, err := q.Exec(ctx, args[1], stringArgs(args[2:])...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return err
		},
	}
}

func newPrefCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Read and write preference files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <file> <key>",
		Short: "Print one preference value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.facade.PreferenceAdapter(ctx, a.source, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			var v any
			if err := p.Get(ctx, args[1], &v); err != nil {
				return err
			}
			return printYAML(cmd, v)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <file> <key> <value>",
		Short: "Store a preference; value is JSON, or a plain string when it does not parse",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.facade.PreferenceAdapter(ctx, a.source, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			var v any
			if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(args[2], &v); err != nil {
				v = args[2]
			}
			return p.Put(ctx, args[1], v)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <file>",
		Short: "Print every preference in a file as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.facade.PreferenceAdapter(ctx, a.source, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			keys, err := p.Keys(ctx)
			if err != nil {
				return err
			}
			out := yaml.MapSlice{}
			for _, k := range keys {
				var v any
				if err := p.Get(ctx, k, &v); err != nil {
					return err
				}
				out = append(out, yaml.MapItem{Key: k, Value: v})
			}
			return printYAML(cmd, out)
		},
	})
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
		// Settings need not be valid to be rewritten.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default settings file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Write(path, config.Defaults()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
