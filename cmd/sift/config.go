package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/termfx/sift/core"
)

// configFile is the YAML layout of config import and export.
type configFile struct {
	Configurations []core.Configuration `yaml:"configurations"`
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage saved search configurations",
	}
	cmd.AddCommand(
		newConfigAddCmd(a),
		newConfigListCmd(a),
		newConfigShowCmd(a),
		newConfigDeleteCmd(a),
		newConfigImportCmd(a),
		newConfigExportCmd(a),
	)
	return cmd
}

func newConfigAddCmd(a *app) *cobra.Command {
	var (
		q           queryFlags
		description string
		check       bool
	)
	cmd := &cobra.Command{
		Use:   "add NAME PATTERN",
		Short: "Save a configuration under a name",
		Long: `Save a configuration under a name. Other patterns can then refer to it
with within=NAME or contains=NAME.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, _, err := q.options(ctx, a, args[1:])
			if err != nil {
				return err
			}
			c := core.Configuration{
				Name:        args[0],
				Scope:       a.cfg.Scope,
				Description: description,
				Options:     opts,
			}
			if err := c.Validate(); err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			if check {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				if _, err := svc.Compile(ctx, opts); err != nil {
					return err
				}
			}
			if err := store.Save(ctx, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", c.Name)
			return nil
		},
	}
	q.register(cmd, false)
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the configuration finds")
	cmd.Flags().BoolVar(&check, "check", true, "compile the pattern before saving")
	return cmd
}

func newConfigListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			configs, err := store.List(cmd.Context(), a.cfg.Scope)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLANGUAGE\tPATTERN")
			for _, c := range configs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Options.Language, c.Options.Pattern)
			}
			return tw.Flush()
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			c, err := store.Get(cmd.Context(), a.cfg.Scope, args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), c)
		},
	}
}

func newConfigDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a configuration",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), a.cfg.Scope, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newConfigImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Save every configuration of a YAML file",
		Long: `Save every configuration of a YAML file. Entries without a scope go to the
current scope; existing configurations with the same name are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var file configFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			for i := range file.Configurations {
				if file.Configurations[i].Scope == "" {
					file.Configurations[i].Scope = a.cfg.Scope
				}
				if err := file.Configurations[i].Validate(); err != nil {
					return fmt.Errorf("entry %d: %w", i+1, err)
				}
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			for _, c := range file.Configurations {
				if err := store.Save(cmd.Context(), c); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d configurations\n", len(file.Configurations))
			return nil
		},
	}
}

func newConfigExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the configurations of the scope as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			configs, err := store.List(cmd.Context(), a.cfg.Scope)
			if err != nil {
				return err
			}
			file := configFile{Configurations: configs}
			if len(args) == 0 {
				return writeYAML(cmd.OutOrStdout(), file)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := writeYAML(f, file); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches of the scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			runs, err := store.Runs(cmd.Context(), a.cfg.Scope, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tLANGUAGE\tFILES\tMATCHES\tERRORS\tPATTERN")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Language, r.FilesScanned, r.Matches, r.Errors, r.Pattern)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
