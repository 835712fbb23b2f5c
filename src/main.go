package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/contre95/plexmirror/src/features/jobs"
	"github.com/contre95/plexmirror/src/features/logging"
	"github.com/contre95/plexmirror/src/features/metrics"
	"github.com/contre95/plexmirror/src/features/targets"
	"github.com/contre95/plexmirror/src/infra/artwork"
	"github.com/contre95/plexmirror/src/infra/database"
	"github.com/contre95/plexmirror/src/infra/files"
	"github.com/contre95/plexmirror/src/infra/providers"
	"github.com/contre95/plexmirror/src/infra/tag"
	"github.com/dustin/go-humanize"
)

const runLogRetention = 30 * 24 * time.Hour

type Args struct {
	Config      string `arg:"-c,--config" default:"config.yaml" help:"Path to the configuration file."`
	Credentials string `arg:"--credentials" default:"credentials.yaml" help:"Path to the Plex credentials file."`
	Object      string `arg:"-o,--object" help:"Targets to process: artist, playlist or all. Overrides download.object."`
	Workers     int    `arg:"-w,--workers" help:"Concurrent transfers. Overrides download.workers."`
	Targets     string `arg:"-t,--targets" help:"Directory holding artists.txt and playlists.txt. Overrides download.targets_dir."`
	History     int    `arg:"--history" placeholder:"N" help:"Print the last N runs from the history database and exit."`
}

func (Args) Description() string {
	return "Mirrors artists and playlists from a Plex music library into a local folder tree."
}

func main() {
	var args Args
	arg.MustParse(&args)
	os.Exit(run(args))
}

func run(args Args) int {
	// Load configuration
	cfgManager, err := config.Load(args.Config)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}
	overridden := *cfgManager.Get()
	if args.Object != "" {
		overridden.Download.Object = args.Object
	}
	if args.Workers > 0 {
		overridden.Download.Workers = args.Workers
	}
	if args.Targets != "" {
		overridden.Download.TargetsDir = args.Targets
	}
	cfgManager.Update(&overridden)
	cfg := cfgManager.Get()

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	if args.History > 0 {
		if err := printHistory(os.Stdout, cfg.History.Path, args.History); err != nil {
			logger.Error("Failed to read run history", "path", cfg.History.Path, "error", err)
			return 1
		}
		return 0
	}

	creds, err := config.LoadCredentials(args.Credentials)
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return 1
	}
	cfgManager.LogSummary(logger)
	logger.Debug("Effective configuration", "yaml", cfgManager.GetYAML())

	if !cfg.Download.Enabled {
		logger.Info("Download is disabled, nothing to do")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the catalog before touching the library
	artworkService := artwork.NewService(cfg.Artwork, logger)
	catalog := providers.NewPlexCatalog(creds.Plex, cfg.Plex, artworkService, logger)
	if err := catalog.Ping(ctx); err != nil {
		logger.Error("Failed to connect to Plex", "url", creds.Plex.URL, "credentials", providers.IsCredentialError(err), "error", err)
		return 1
	}

	paths, err := files.NewPathResolverFromConfig(cfg)
	if err != nil {
		logger.Error("Invalid library paths", "error", err)
		return 1
	}

	var validator downloading.AudioValidator
	if cfg.Download.ValidateAudio {
		validator = tag.NewValidator(logger)
	}

	list, err := targets.NewReader(cfg.Download.TargetsDir, logger).Read(targets.Object(cfg.Download.Object))
	if err != nil {
		logger.Error("Failed to read targets", "error", err)
		return 1
	}
	if len(list) == 0 {
		logger.Warn("No targets to process", "dir", cfg.Download.TargetsDir, "object", cfg.Download.Object)
		return 0
	}

	// Create the job service
	jobService := jobs.NewService(&cfg.Jobs, logger)
	defer jobService.Close()
	if removed, err := jobService.CleanupOldLogs(runLogRetention); err != nil {
		logger.Warn("Failed to clean up run logs", "error", err)
	} else if removed > 0 {
		logger.Debug("Removed old run logs", "count", removed)
	}

	job, err := jobService.Start("download")
	if err != nil {
		logger.Error("Failed to start run", "error", err)
		return 1
	}

	downloadingService := downloading.NewService(logger, catalog, paths, files.NewStore(), validator, downloading.OptionsFromConfig(cfg.Download))
	report, runErr := downloadingService.Run(ctx, list)
	jobService.Finish(job, report, runErr)

	metricsService := metrics.NewService(cfg.Metrics, logger)
	metricsService.Observe(report)
	if err := metricsService.Flush(); err != nil {
		logger.Warn("Failed to write metrics", "error", err)
	}

	if cfg.History.Enabled {
		saveHistory(cfg.History.Path, job, report, logger)
	}

	if runErr != nil {
		logger.Warn("Run interrupted", "id", job.ID, "error", runErr)
		return 0
	}
	logger.Info("Run finished", "id", job.ID, "status", job.Status, "message", job.Message)
	return 0
}

func saveHistory(path string, job *jobs.Run, report *downloading.RunReport, logger *slog.Logger) {
	history, err := database.NewSqliteHistory(path, logger)
	if err != nil {
		logger.Warn("Failed to open run history", "path", path, "error", err)
		return
	}
	defer history.Close()
	// The signal context may already be cancelled; the record is still wanted.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := history.SaveRun(ctx, job.ID, string(job.Status), report); err != nil {
		logger.Warn("Failed to save run history", "error", err)
	}
}

// printHistory writes the last limit runs and their failures to w.
func printHistory(w io.Writer, path string, limit int) error {
	history, err := database.NewSqliteHistory(path, nil)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx := context.Background()
	runs, err := history.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-9s  %s (%s)  targets=%d transferred=%d existing=%d failed=%d\n",
			r.ID, r.Status, humanize.Time(r.StartedAt), r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Targets, r.Transferred, r.Existing, r.Failed)
		if r.Failed == 0 && r.Status == string(jobs.RunStatusCompleted) {
			continue
		}
		items, err := history.FailedItems(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Fprintf(w, "    %s %q [%s %s]: %s\n", it.Kind, it.Name, it.TargetKind, it.TargetName, it.Error)
		}
	}
	return nil
}
