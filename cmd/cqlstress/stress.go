package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mmrzaf/cqlstress/internal/app"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type stressFlags struct {
	operations        uint64
	duration          string
	threads           int
	rate              float64
	population        string
	profileID         string
	profilePath       string
	targetID          string
	targetDSN         string
	targetKind        string
	consistency       string
	serialConsistency string
	noProgress        bool
}

func stressCmd(command, short string) *cobra.Command {
	var f stressFlags

	cmd := &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(domain.Command(command), cmd.Flags().Changed("n"))
			if err != nil {
				return err
			}
			return runStress(cmd.Context(), req, f.noProgress, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Uint64Var(&f.operations, "n", 0, "Number of operations to perform")
	cmd.Flags().StringVar(&f.duration, "duration", "", "Run for a fixed time instead (e.g. 30s, 5m)")
	cmd.Flags().IntVar(&f.threads, "threads", cfg.Threads, "Concurrent workers")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Maximum operations per second (0 is unlimited)")
	cmd.Flags().StringVar(&f.population, "pop", "", "Partition key population, e.g. seq=1..1m or UNIFORM(1..1000)")
	cmd.Flags().StringVar(&f.profileID, "profile", "", "Profile ID (default standard1)")
	cmd.Flags().StringVar(&f.profilePath, "profile-path", "", "Profile file path")
	cmd.Flags().StringVar(&f.targetID, "target-id", "", "Target ID")
	cmd.Flags().StringVar(&f.targetDSN, "target", "", "Target DSN")
	cmd.Flags().StringVar(&f.targetKind, "target-kind", domain.TargetKindCQL, "Target kind used with --target")
	cmd.Flags().StringVar(&f.consistency, "cl", "", "Consistency level")
	cmd.Flags().StringVar(&f.serialConsistency, "serial-cl", "", "Serial consistency level")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.MarkFlagsMutuallyExclusive("profile", "profile-path")
	cmd.MarkFlagsMutuallyExclusive("target-id", "target")

	return cmd
}

func (f *stressFlags) request(command domain.Command, hasOps bool) (*domain.RunRequest, error) {
	req := &domain.RunRequest{
		Command:           command,
		ProfileID:         f.profileID,
		Duration:          f.duration,
		Threads:           f.threads,
		Rate:              f.rate,
		Consistency:       f.consistency,
		SerialConsistency: f.serialConsistency,
	}
	if hasOps {
		n := f.operations
		req.Operations = &n
	}

	pop, err := populationSpec(f.population)
	if err != nil {
		return nil, err
	}
	req.Population = pop

	if f.profilePath != "" {
		p, err := profiles.LoadFile(f.profilePath)
		if err != nil {
			return nil, err
		}
		req.Profile = p
	}

	switch {
	case f.targetDSN != "":
		req.Target = &domain.TargetConfig{
			Name: "inline-target",
			Kind: f.targetKind,
			DSN:  f.targetDSN,
		}
	case f.targetID != "":
		req.TargetID = f.targetID
	default:
		return nil, errors.New("either --target-id or --target required")
	}
	return req, nil
}

// populationSpec accepts the distribution syntax directly plus the short
// forms seq=LO..HI and dist=SPEC.
func populationSpec(flag string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return "", nil
	}
	name, value, ok := strings.Cut(flag, "=")
	if !ok {
		return flag, nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "seq":
		return fmt.Sprintf("SEQ(%s)", strings.TrimSpace(value)), nil
	case "dist":
		return strings.TrimSpace(value), nil
	default:
		return "", fmt.Errorf("invalid --pop %q: expected seq=LO..HI or dist=SPEC", flag)
	}
}

func runStress(ctx context.Context, req *domain.RunRequest, noProgress bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(logLevel)
	defer logger.Sync()

	runRepo, err := openRuns()
	if err != nil {
		return err
	}
	defer runRepo.Close()

	runService := app.NewRunService(
		profiles.NewFileRepository(profilesDir),
		targets.NewFileRepository(targetsDir),
		runRepo,
		nil,
		logger,
		app.Defaults{Threads: cfg.Threads, Consistency: cfg.Consistency},
	)

	plan, err := runService.Plan(req)
	if err != nil {
		return err
	}
	if plan.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", plan.Warning)
	}

	var progress func(int64)
	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = newProgressBar(plan)
		progress = func(done int64) {
			if done%progressStep == 0 {
				_ = bar.Set64(done)
			}
		}
	}

	run, err := runService.Run(ctx, plan, progress)
	if bar != nil {
		if run != nil {
			if stats, ok := decodeStats(run); ok {
				_ = bar.Set64(stats.Operations)
			}
		}
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if run == nil {
		return err
	}
	printSummary(out, run)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusSuccess {
		return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
	}
	return nil
}

// progressStep keeps workers from contending on the bar's lock.
const progressStep = 64

func decodeStats(run *domain.Run) (domain.RunStats, bool) {
	var stats domain.RunStats
	if len(run.Stats) == 0 {
		return stats, false
	}
	if err := json.Unmarshal(run.Stats, &stats); err != nil {
		return stats, false
	}
	return stats, true
}

func newProgressBar(plan *app.RunPlan) *progressbar.ProgressBar {
	max := int64(-1)
	if plan.Operations != nil && plan.Duration == 0 {
		max = int64(*plan.Operations)
	}
	return progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(string(plan.Command)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("op"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionFullWidth(),
	)
}

func printSummary(out io.Writer, run *domain.Run) {
	fmt.Fprintf(out, "Run:          %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(out, "Command:      %s %s on %s\n", run.Command, run.ProfileName, run.TargetName)
	fmt.Fprintf(out, "Population:   %s\n", run.Population)
	if stats, ok := decodeStats(run); ok {
		fmt.Fprintf(out, "Operations:   %s (%s failed: %s validation, %s execution)\n",
			humanize.Comma(stats.Operations), humanize.Comma(stats.Failures),
			humanize.Comma(stats.ValidationErrors), humanize.Comma(stats.ExecutionErrors))
		fmt.Fprintf(out, "Duration:     %.2fs\n", stats.DurationSeconds)
		fmt.Fprintf(out, "Throughput:   %s op/s\n", humanize.CommafWithDigits(stats.OpsPerSecond, 1))
		fmt.Fprintf(out, "Latency (ms): mean %.3f  p50 %.3f  p95 %.3f  p99 %.3f  max %.3f\n",
			stats.LatencyMeanMS, stats.LatencyP50MS, stats.LatencyP95MS, stats.LatencyP99MS, stats.LatencyMaxMS)
	}
	if run.Fingerprint != "" {
		fmt.Fprintf(out, "Fingerprint:  %s\n", run.Fingerprint)
	}
	if run.Error != "" {
		fmt.Fprintf(out, "Error:        %s\n", run.Error)
	}
}
