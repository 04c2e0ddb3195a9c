// Package dbt invokes the dbt CLI to compile or run a pattern's model with
// resolved variables.
package dbt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/metrics"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

const (
	modeCompile = "compile"
	modeRun     = "run"
)

// Config locates the dbt binary and project.
type Config struct {
	Binary      string // defaults to "dbt"
	ProjectDir  string
	ProfilesDir string // defaults to ProjectDir
}

// RunOutcome is the result of dbt run. Success=false means dbt itself
// reported a failure; the caller decides what to show.
type RunOutcome struct {
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Bridge compiles and runs pattern models.
type Bridge interface {
	// Compile returns the compiled SQL text of the pattern's model verbatim.
	Compile(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (string, error)

	// Run executes the model. The error is non-nil only when dbt could not start.
	Run(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (*RunOutcome, error)
}

type bridge struct {
	cfg    Config
	runner CommandRunner
	logger *zap.Logger
}

// NewBridge creates a Bridge. A nil runner uses ExecRunner.
func NewBridge(cfg Config, runner CommandRunner, logger *zap.Logger) Bridge {
	if cfg.Binary == "" {
		cfg.Binary = "dbt"
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = cfg.ProjectDir
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &bridge{cfg: cfg, runner: runner, logger: logger.Named("dbt")}
}

func (b *bridge) Compile(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (string, error) {
	result, err := b.invoke(ctx, modeCompile, pattern, vars)
	if err != nil {
		return "", err
	}

	if result.ExitCode != 0 {
		metrics.ObserveDBT(modeCompile, "failed", result.Duration)
		// dbt prints most diagnostics to stdout
		diagnostic := result.Stderr
		if strings.TrimSpace(diagnostic) == "" {
			diagnostic = result.Stdout
		}
		return "", &apperrors.CompilationFailedError{Pattern: string(pattern), ExitCode: result.ExitCode, Stderr: diagnostic}
	}
	metrics.ObserveDBT(modeCompile, "success", result.Duration)

	project, err := LoadProjectInfo(b.cfg.ProjectDir)
	if err != nil {
		return "", err
	}
	path := project.CompiledPath(b.cfg.ProjectDir, string(pattern))
	sqlText, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &apperrors.CompilationFailedError{
				Pattern: string(pattern),
				Stderr:  fmt.Sprintf("compiled artifact not found at %s", path),
			}
		}
		return "", fmt.Errorf("read compiled sql: %w", err)
	}
	return string(sqlText), nil
}

func (b *bridge) Run(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (*RunOutcome, error) {
	result, err := b.invoke(ctx, modeRun, pattern, vars)
	if err != nil {
		return nil, err
	}

	outcome := &RunOutcome{
		Success:  result.ExitCode == 0,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
		Duration: result.Duration,
	}
	if outcome.Success {
		metrics.ObserveDBT(modeRun, "success", result.Duration)
	} else {
		metrics.ObserveDBT(modeRun, "failed", result.Duration)
		b.logger.Info("dbt run reported failure",
			zap.String("pattern", string(pattern)),
			zap.Int("exit_code", result.ExitCode))
	}
	return outcome, nil
}

func (b *bridge) invoke(ctx context.Context, mode string, pattern models.Pattern, vars models.ResolvedVariables) (*CommandResult, error) {
	varsJSON, err := vars.JSON()
	if err != nil {
		return nil, err
	}
	args := Args(mode, b.cfg.ProjectDir, b.cfg.ProfilesDir, string(pattern), varsJSON)

	b.logger.Debug("Invoking dbt",
		zap.String("mode", mode),
		zap.String("pattern", string(pattern)),
		zap.String("vars", varsJSON))

	// paths in args are relative to the process working directory
	result, err := b.runner.Run(ctx, "", b.cfg.Binary, args...)
	if err != nil {
		metrics.ObserveDBT(mode, "unavailable", 0)
		return nil, fmt.Errorf("%w: %s %s: %v", apperrors.ErrToolUnavailable, b.cfg.Binary, mode, err)
	}
	return result, nil
}

// Args builds the dbt argument list for one model.
func Args(mode, projectDir, profilesDir, model, varsJSON string) []string {
	return []string{
		mode,
		"--project-dir", projectDir,
		"--profiles-dir", profilesDir,
		"--models", model,
		"--vars", varsJSON,
	}
}
