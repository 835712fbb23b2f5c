package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	// RunStatusPartial means the run finished but some items failed.
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

const webhookTimeout = 30 * time.Second

// Run is one tracked execution of the download orchestrator.
type Run struct {
	ID        string
	Name      string
	Status    RunStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Logger writes to the per-run log file, or discards when run logs are disabled.
	Logger  *slog.Logger
	LogPath string
	Stats   Stats

	logFile *os.File
}

// Stats is the outcome summary of a finished run.
type Stats struct {
	Targets       int
	FailedTargets int
	Transferred   int
	Existing      int
	Failed        int
}

type Service struct {
	config *config.Jobs
	logger *slog.Logger

	mu       sync.RWMutex
	runs     map[string]*Run
	webhooks sync.WaitGroup
}

func NewService(cfg *config.Jobs, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: cfg,
		logger: logger,
		runs:   make(map[string]*Run),
	}
}

// Start registers a new run and opens its log file when run logs are enabled.
func (s *Service) Start(name string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    RunStatusRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if s.config.Log {
		logDir := s.config.LogPath
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logName := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), run.ID)
		logPath := filepath.Join(logDir, logName)
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		run.logFile = logFile
		run.Logger = slog.New(slog.NewTextHandler(logFile, nil))
		run.LogPath = logPath
	} else {
		run.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	run.Logger.Info("Starting run", "id", run.ID, "name", name)
	s.logger.Debug("Run started", "id", run.ID, "logPath", run.LogPath)
	return run, nil
}

// Finish records the outcome of run, writes the per-target summary to the run log
// and fires the completion webhook.
func (s *Service) Finish(run *Run, report *downloading.RunReport, runErr error) {
	status, message := classify(report, runErr)

	s.mu.Lock()
	run.Status = status
	run.Message = message
	run.UpdatedAt = time.Now()
	if report != nil {
		run.Stats = Stats{
			Targets:       len(report.Targets),
			FailedTargets: report.FailedTargets(),
			Transferred:   report.Count(downloading.OutcomeTransferred),
			Existing:      report.Count(downloading.OutcomeExisting),
			Failed:        report.Count(downloading.OutcomeFailed),
		}
	}
	s.mu.Unlock()

	if report != nil {
		for _, t := range report.Targets {
			attrs := []any{
				"target", t.Target.String(),
				"matched", strings.Join(t.Matched, ", "),
				"transferred", t.Count(downloading.OutcomeTransferred),
				"existing", t.Count(downloading.OutcomeExisting),
				"failed", t.Count(downloading.OutcomeFailed),
			}
			if t.Err != nil {
				run.Logger.Warn("Target not processed", append(attrs, "error", t.Err)...)
				continue
			}
			run.Logger.Info("Target processed", attrs...)
			for _, item := range t.Items {
				if item.Err != nil {
					run.Logger.Error("Item failed", "kind", item.Kind, "name", item.Name, "error", item.Err)
				}
			}
		}
	}
	run.Logger.Info("Run finished", "status", status, "message", message)

	s.executeWebhook(run)
}

// Close waits for pending webhooks and closes run log files.
func (s *Service) Close() {
	s.webhooks.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		if run.logFile != nil {
			run.logFile.Close()
			run.logFile = nil
		}
	}
}

// CleanupOldLogs removes run log files in the log directory older than maxAge.
func (s *Service) CleanupOldLogs(maxAge time.Duration) (int, error) {
	if !s.config.Log {
		return 0, nil
	}
	entries, err := os.ReadDir(s.config.LogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list run logs: %w", err)
	}
	removed := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(s.config.LogPath, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func classify(report *downloading.RunReport, runErr error) (RunStatus, string) {
	switch {
	case runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)):
		return RunStatusCancelled, "Run cancelled"
	case runErr != nil:
		return RunStatusFailed, runErr.Error()
	case report == nil:
		return RunStatusFailed, "no report"
	}
	failed := report.Count(downloading.OutcomeFailed)
	if failed > 0 || report.FailedTargets() > 0 {
		return RunStatusPartial, fmt.Sprintf("Run completed with errors - %d failed items, %d failed targets", failed, report.FailedTargets())
	}
	return RunStatusCompleted, fmt.Sprintf("Run completed successfully - %d transferred, %d already present",
		report.Count(downloading.OutcomeTransferred), report.Count(downloading.OutcomeExisting))
}

// executeWebhook executes the configured webhook command for run completion
func (s *Service) executeWebhook(run *Run) {
	if !s.config.Webhooks.Enabled || s.config.Webhooks.Command == "" {
		return
	}

	s.mu.RLock()
	data := struct {
		ID          string
		Name        string
		Status      string
		Message     string
		Duration    string
		Transferred int
		Failed      int
	}{
		ID:          run.ID,
		Name:        run.Name,
		Status:      string(run.Status),
		Message:     run.Message,
		Duration:    run.UpdatedAt.Sub(run.CreatedAt).Round(time.Second).String(),
		Transferred: run.Stats.Transferred,
		Failed:      run.Stats.Failed,
	}
	s.mu.RUnlock()

	tmpl, err := template.New("webhook").Parse(s.config.Webhooks.Command)
	if err != nil {
		run.Logger.Error("Failed to parse webhook template", "error", err)
		return
	}

	var command strings.Builder
	if err := tmpl.Execute(&command, data); err != nil {
		run.Logger.Error("Failed to execute webhook template", "error", err)
		return
	}

	s.webhooks.Add(1)
	go func(cmd string) {
		defer s.webhooks.Done()
		s.executeWebhookCommand(cmd, run)
	}(command.String())
}

// executeWebhookCommand executes the webhook command safely
func (s *Service) executeWebhookCommand(command string, run *Run) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	// Use shell to properly handle quoted strings and complex commands
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		run.Logger.Error("Webhook execution failed", "command", command, "error", err)
		s.logger.Warn("Webhook execution failed", "run", run.ID, "error", err)
		return
	}
	run.Logger.Info("Webhook executed successfully", "command", command)
}
