package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmrzaf/cqlstress/internal/app"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/registry"
	"github.com/mmrzaf/cqlstress/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func isPath(arg string) bool {
	return strings.Contains(arg, "/") || strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml")
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func printYAML(v any) {
	data, _ := yaml.Marshal(v)
	fmt.Println(string(data))
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect workload profiles",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := profiles.NewFileRepository(profilesDir).List()
			if err != nil {
				return err
			}
			if format == "json" {
				printJSON(list)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTABLE\tCOLUMNS\tCOLUMN_SIZE\tPOPULATION")
			for _, p := range list {
				eff := p.WithDefaults(nil)
				fmt.Fprintf(w, "%s\t%s\t%s.%s\t%d\t%s\t%s\n",
					p.ID, p.Name, eff.Keyspace, eff.Table, eff.Columns, eff.ColumnSize, p.Population)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a profile with defaults applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profiles.NewFileRepository(profilesDir).Get(args[0])
			if err != nil {
				return err
			}
			printYAML(p.WithDefaults(nil))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := profiles.NewFileRepository(profilesDir)
			var p *domain.Profile
			var err error
			if isPath(args[0]) {
				p, err = profiles.LoadFile(args[0])
			} else {
				p, err = repo.Get(args[0])
			}
			if err != nil {
				return err
			}

			eff := p.WithDefaults(nil)
			if err := validation.NewValidator(nil).ValidateProfile(&eff); err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}
			fmt.Printf("Profile '%s' is valid\n", p.Name)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, validateCmd)
	return cmd
}

func targetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Inspect and check targets",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := targets.NewFileRepository(targetsDir).List()
			if err != nil {
				return err
			}
			list = targets.RedactTargets(list)
			if format == "json" {
				printJSON(list)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tDSN")
			for _, t := range list {
				dsn := t.DSN
				if len(dsn) > 50 {
					dsn = dsn[:47] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Kind, dsn)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show target details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := targets.NewFileRepository(targetsDir).Get(args[0])
			if err != nil {
				return err
			}
			printYAML(targets.RedactTarget(t))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a target definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t *domain.TargetConfig
			var err error
			if isPath(args[0]) {
				t, err = targets.LoadFile(args[0])
			} else {
				t, err = targets.NewFileRepository(targetsDir).Get(args[0])
			}
			if err != nil {
				return err
			}
			if err := validation.NewValidator(nil).ValidateTarget(t); err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}
			fmt.Printf("Target '%s' is valid\n", t.Name)
			return nil
		},
	}

	var (
		profileID    string
		createSchema bool
		timeout      time.Duration
	)
	checkCmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Connect to a target and optionally create a profile's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := targets.NewFileRepository(targetsDir).Get(args[0])
			if err != nil {
				return err
			}
			var p *domain.Profile
			if profileID != "" {
				p, err = profiles.NewFileRepository(profilesDir).Get(profileID)
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			check, err := app.CheckTarget(ctx, t, p, createSchema)
			printYAML(check)
			return err
		},
	}
	checkCmd.Flags().StringVar(&profileID, "profile", "", "Profile whose schema to check")
	checkCmd.Flags().BoolVar(&createSchema, "create-schema", false, "Create the profile's keyspace and table")
	checkCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Check timeout")

	cmd.AddCommand(listCmd, showCmd, validateCmd, checkCmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect run history",
	}

	var (
		limit  int
		status string
		format string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, err := openRuns()
			if err != nil {
				return err
			}
			defer runRepo.Close()

			list, err := runRepo.List(limit, status)
			if err != nil {
				return err
			}
			if format == "json" {
				printJSON(list)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMAND\tPROFILE\tTARGET\tPOPULATION\tSTATUS\tSTARTED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID[:8], r.Command, r.ProfileName, r.TargetName, r.Population, r.Status,
					r.StartedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, err := openRuns()
			if err != nil {
				return err
			}
			defer runRepo.Close()

			run, err := runRepo.Get(args[0])
			if err != nil {
				return err
			}
			printSummary(os.Stdout, run)
			fmt.Printf("Config hash:  %s\n", run.ConfigHash)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func describeDistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe-dist <spec>",
		Short: "Parse a distribution and print its range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := populationSpec(args[0])
			if err != nil {
				return err
			}
			d, err := registry.DefaultDistributionRegistry().Parse(spec)
			if err != nil {
				return err
			}
			fmt.Printf("%s deterministic=%t\n", d, d.Deterministic())
			return nil
		},
	}
}
