package gop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Script names inside the toolkit's GOP recipe directory.
const (
	refPhonesScript = "local/text-to-phone.sh"
	evaluatorScript = "run.sh"
)

// defaultRunTimeout bounds a single toolchain invocation. GOP evaluation is
// CPU and I/O heavy and can take seconds; a hung process must not pin a
// request forever.
const defaultRunTimeout = 3 * time.Minute

// ProcessError reports a failed external toolchain invocation. Timeout
// distinguishes an expired deadline (process killed) from a non-zero exit.
type ProcessError struct {
	Script   string
	ExitCode int
	Stderr   string
	Timeout  bool
}

func (e *ProcessError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("gop: %s timed out and was killed", e.Script)
	}
	msg := fmt.Sprintf("gop: %s exited with code %d", e.Script, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ToolkitOption configures a Toolkit.
type ToolkitOption func(*Toolkit)

// WithRunTimeout sets the per-invocation deadline. Defaults to 3 minutes.
func WithRunTimeout(d time.Duration) ToolkitOption {
	return func(t *Toolkit) {
		t.timeout = d
	}
}

// Toolkit invokes the external Kaldi GOP recipe through its shell entry
// points. The filesystem paths passed to the scripts are the only data
// channel; stdout carries the evaluator report and stderr carries
// diagnostics. This is the least type-safe seam in the system — keep it
// narrow.
//
// Toolkit is stateless and safe for concurrent use.
type Toolkit struct {
	// recipeDir is the GOP recipe directory, e.g.
	// $KALDI_HOME/egs/gop_speechocean762.
	recipeDir string
	timeout   time.Duration
}

// NewToolkit creates a Toolkit rooted at recipeDir.
func NewToolkit(recipeDir string, opts ...ToolkitOption) (*Toolkit, error) {
	if recipeDir == "" {
		return nil, errors.New("gop: recipe directory must not be empty")
	}
	t := &Toolkit{recipeDir: recipeDir, timeout: defaultRunTimeout}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// RecipeDir returns the configured recipe directory (used by health checks).
func (t *Toolkit) RecipeDir() string {
	return t.recipeDir
}

// GenerateReferencePhones runs the text-to-phone script, which writes a
// `text-phone` reference segmentation file into outputDir.
func (t *Toolkit) GenerateReferencePhones(ctx context.Context, textFile, refWavFile, outputDir string) error {
	_, err := t.run(ctx, refPhonesScript, textFile, refWavFile, outputDir)
	return err
}

// RunEvaluator runs the GOP evaluator and returns its stdout: the raw
// report line consumed by ParseReport.
func (t *Toolkit) RunEvaluator(ctx context.Context, textFile, usrWavFile, refPhoneFile, outputDir string) (string, error) {
	return t.run(ctx, evaluatorScript, textFile, usrWavFile, refPhoneFile, outputDir)
}

// run executes one toolkit script with a bounded deadline, capturing stdout
// and stderr. A non-zero exit or an expired deadline surfaces as a
// *ProcessError; the pipeline does not retry.
func (t *Toolkit) run(ctx context.Context, script string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	scriptPath := filepath.Join(t.recipeDir, script)
	cmdArgs := append([]string{scriptPath}, args...)
	cmd := exec.CommandContext(ctx, "/bin/bash", cmdArgs...)
	cmd.Dir = t.recipeDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("toolkit script finished",
		"script", script,
		"duration", time.Since(start),
		"err", err,
	)
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return "", &ProcessError{Script: script, Timeout: true}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ProcessError{
			Script:   script,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return "", fmt.Errorf("gop: run %s: %w", script, err)
}
