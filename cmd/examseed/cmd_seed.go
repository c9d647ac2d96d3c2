package main

import (
	"errors"
	"fmt"
	"time"

	"examseed/cmd/examseed/ui"
	"examseed/internal/config"
	"examseed/internal/gateway"
	"examseed/internal/logging"
	"examseed/internal/results"
	"examseed/internal/seed"
	"examseed/internal/store"
	"examseed/internal/synth"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// seedCmd populates the hierarchy and the exam catalogue
var seedCmd = &cobra.Command{
	Use:   "seed [levels...]",
	Short: "Create regions, centres, schools, students and exams",
	Long: `Creates the requested levels in dependency order. Without arguments every
hierarchy level and the exam catalogue are seeded.

Levels: regions, centres, schools, students, exams, applications, results

Each level discovers its parents by listing what already exists remotely, so
levels can be run in separate invocations:
  examseed seed regions centres
  examseed seed schools
  examseed seed students --seed 42`,
	RunE: runSeed,
}

// applyCmd submits applications
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Submit one application per eligible student",
	Long: `Classifies every student by age (under 14 prathamik, 14-15 prabodh, over 15
pravin) and applies for the exam whose name contains that tier. Students with
no matching exam are reported as ineligible.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLevels(cmd, []seed.Level{seed.LevelApplications})
	},
}

// publishCmd publishes results
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Synthesize and publish a result for every application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLevels(cmd, []seed.Level{seed.LevelResults})
	},
}

// simulateCmd runs the whole lifecycle after seeding
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Apply for exams, then publish results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLevels(cmd, []seed.Level{seed.LevelApplications, seed.LevelResults})
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	levels, err := seed.ParseLevels(args)
	if err != nil {
		return err
	}
	return runLevels(cmd, levels)
}

// runLevels executes levels against the configured service, prints one line
// per item and the summary, and fails when any creation failed.
func runLevels(cmd *cobra.Command, levels []seed.Level) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	styles := ui.DefaultStyles()
	if !quiet {
		rt.seeder.SetObserver(seed.ObserverFunc(func(rec seed.Record) {
			fmt.Fprintln(out, ui.RecordLine(rec, styles))
		}))
	}

	summary, runErr := rt.seeder.Run(ctx, levels)
	fmt.Fprintln(out)
	fmt.Fprint(out, ui.SummaryView(summary, styles))

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return summary.Err()
}

// =============================================================================
// RUNTIME
// =============================================================================

// runtime holds the collaborators of one command invocation.
type runtime struct {
	client *gateway.Client
	cache  store.BlobStore
	seeder *seed.Seeder
}

func newRuntime(c *config.Config, log *zap.Logger) (*runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts, err := seedOptions(c)
	if err != nil {
		return nil, err
	}

	cache, err := store.Open(c.Cache.Driver, c.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	markers := c.Service.DuplicateMarkers
	if len(markers) == 0 {
		markers = []string{gateway.DefaultDuplicateMarker}
	}
	client := gateway.New(gateway.Config{
		BaseURL:     c.Service.BaseURL,
		Timeout:     c.GetTimeout(),
		Pacing:      c.GetPacing(),
		IsDuplicate: gateway.ContainsMarker(markers...),
	}, logging.For(log, logging.CategoryGateway))

	seedValue := c.RandomSeed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	logging.For(log, logging.CategoryBoot).Info("random seed", zap.Int64("seed", seedValue))
	gen := synth.New(c.Seeding.Generator, synth.Source(seedValue))

	return &runtime{
		client: client,
		cache:  cache,
		seeder: seed.New(client, gen, cache, opts, log),
	}, nil
}

// Close releases the cache and idle connections.
func (r *runtime) Close() error {
	r.client.Close()
	return r.cache.Close()
}

// seedOptions maps the configuration onto seeder options.
func seedOptions(c *config.Config) (seed.Options, error) {
	exams, err := seed.LoadExams(c.Seeding.ExamsFile)
	if err != nil {
		return seed.Options{}, err
	}

	opts := seed.DefaultOptions()
	opts.Regions = make([]seed.RegionPlan, len(c.Seeding.Regions))
	for i, r := range c.Seeding.Regions {
		opts.Regions[i] = seed.RegionPlan{Name: r.Name, ID: r.ID, Centres: r.Centres}
	}
	opts.SchoolsPerCentre = c.Seeding.SchoolsPerCentre
	opts.StudentsPerSchool = c.Seeding.StudentsPerSchool
	opts.Exams = exams
	opts.PageSize = c.GetPageSize()
	opts.MaxPages = c.Service.MaxPages
	opts.LegacyLists = c.Service.LegacyLists
	opts.FromCache = fromCache
	if c.Simulation.ApplicationStatus != "" {
		opts.ApplicationStatus = c.Simulation.ApplicationStatus
	}
	if c.Simulation.ApplicationType != "" {
		opts.ApplicationType = c.Simulation.ApplicationType
	}
	opts.SubmissionDate = c.Simulation.SubmissionDate
	threshold := c.Simulation.PassThreshold
	opts.Results = results.Options{
		PassThreshold:   &threshold,
		PerPaperMinimum: c.Simulation.PerPaperMinimum,
	}
	return opts, nil
}

// exitCode maps a command error to the process status: 2 for per-item
// failures, 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, seed.ErrFailures):
		return 2
	default:
		return 1
	}
}
