package main

import (
	"os"

	"github.com/mmrzaf/cqlstress/internal/config"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/runs"
	"github.com/spf13/cobra"
)

var (
	profilesDir string
	targetsDir  string
	runsDBPath  string
	runsDBDSN   string
	logLevel    string
	cfg         *config.Config
)

func main() {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:           "cqlstress",
		Short:         "Load generator and validator for Cassandra compatible databases",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&profilesDir, "profiles-dir", cfg.ProfilesDir, "Profiles directory")
	rootCmd.PersistentFlags().StringVar(&targetsDir, "targets-dir", cfg.TargetsDir, "Targets directory")
	rootCmd.PersistentFlags().StringVar(&runsDBPath, "runs-db", cfg.RunsDBPath, "Run history path (.sqlite or .bolt)")
	rootCmd.PersistentFlags().StringVar(&runsDBDSN, "db", cfg.RunsDBDSN, "Run history PostgreSQL DSN (overrides --runs-db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(stressCmd("write", "Insert synthetic rows"))
	rootCmd.AddCommand(stressCmd("read", "Read rows back and validate them against regenerated values"))
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(targetCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(describeDistCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openRuns() (runs.Repository, error) {
	return runs.Open(runsDBPath, runsDBDSN)
}
