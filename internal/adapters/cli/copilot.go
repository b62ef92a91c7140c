// Package cli drives the GitHub Copilot command-line assistant.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
)

// DefaultTimeout bounds one assistant run when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

const versionTimeout = 30 * time.Second

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// Config configures the copilot runner.
type Config struct {
	// Path overrides binary resolution.
	Path    string
	Timeout time.Duration
	// TempRoot is where context copies go; defaults to os.TempDir().
	TempRoot string
	// TokenVar is the environment variable the token is passed in.
	TokenVar string
}

// TokenSource returns the current GitHub token, or "" when there is none.
type TokenSource func() string

// CommandResult holds the result of a CLI execution.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Copilot runs prompts through the copilot CLI.
type Copilot struct {
	cfg      Config
	resolver *Resolver
	token    TokenSource
	logger   *logging.Logger
	now      func() time.Time
}

// NewCopilot creates a runner.
func NewCopilot(cfg Config, token TokenSource, logger *logging.Logger) *Copilot {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenVar == "" {
		cfg.TokenVar = "GITHUB_TOKEN"
	}
	if token == nil {
		token = func() string { return "" }
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Copilot{
		cfg:      cfg,
		resolver: NewResolver(cfg.Path),
		token:    token,
		logger:   logger.WithComponent("copilot"),
		now:      time.Now,
	}
}

// ContextDir is where this runner places context copies.
func (c *Copilot) ContextDir() string {
	return ContextDir(c.cfg.TempRoot)
}

// Run executes one prompt. A context file is copied to a temp location,
// appended to the prompt and removed once the run ends.
func (c *Copilot) Run(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
	prompt := req.Prompt
	result := core.RunResult{ContextPath: req.ContextPath}

	if strings.TrimSpace(req.ContextPath) != "" {
		tmp, err := copyContext(c.ContextDir(), req.ContextPath, c.now())
		if err != nil {
			return core.RunResult{}, err
		}
		defer func() {
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				c.logger.Warn("removing context copy failed", "path", tmp, "error", err)
			}
		}()
		prompt = prompt + " " + tmp
		result.TempPath = tmp
	}

	args := []string{"-s", "-p", prompt}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}

	res, err := c.execute(ctx, c.cfg.Timeout, args)
	if err != nil {
		return core.RunResult{}, err
	}
	result.Output = strings.TrimSpace(cleanANSI(res.Stdout))
	return result, nil
}

// Status probes `copilot --version`. When the probe fails the CLI still
// counts as installed if the binary exists at a known location.
func (c *Copilot) Status(ctx context.Context) (core.CapabilityReport, error) {
	path, found := c.resolver.Resolve()

	res, err := c.execute(ctx, versionTimeout, []string{"--version"})
	if err == nil {
		return core.CapabilityReport{
			Installed: true,
			Version:   strings.TrimSpace(cleanANSI(res.Stdout)),
			Path:      path,
		}, nil
	}
	if ctx.Err() != nil {
		return core.CapabilityReport{}, core.ErrCapabilityQuery(ctx.Err().Error()).WithCause(ctx.Err())
	}

	c.logger.Debug("version probe failed", "error", err, "found", found)
	report := core.CapabilityReport{Installed: found}
	if found {
		report.Path = path
	}
	return report, nil
}

// execute runs the resolved binary with args.
func (c *Copilot) execute(ctx context.Context, timeout time.Duration, args []string) (*CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, _ := c.resolver.Resolve()

	// #nosec G204 -- binary comes from resolution or user config, args are not shell-interpreted
	cmd := exec.CommandContext(ctx, path, args...)
	configureProcAttr(cmd)
	cmd.WaitDelay = 2 * time.Second
	cmd.Env = c.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("cli: executing command", "path", path, "argc", len(args), "timeout", timeout)
	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		c.logger.Warn("cli: command timeout", "path", path, "timeout", timeout)
		return result, core.ErrAssistant(fmt.Sprintf("copilot timed out after %v", timeout)).
			WithCause(core.ErrTimeout(ctx.Err().Error()))
	case errors.Is(ctx.Err(), context.Canceled):
		return result, core.ErrAssistant("copilot run cancelled").WithCause(ctx.Err())
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			c.logger.Warn("cli: command failed", "path", path, "exit_code", result.ExitCode, "duration", result.Duration)
			return result, classifyFailure(result)
		}
		c.logger.Warn("cli: command could not start", "path", path, "error", err)
		return result, core.ErrAssistant(fmt.Sprintf("Failed to run copilot: %v", err)).WithCause(err)
	}

	c.logger.Debug("cli: command completed", "duration", result.Duration, "stdout_length", len(result.Stdout))
	return result, nil
}

func (c *Copilot) environ() []string {
	env := os.Environ()
	if p := c.resolver.AugmentedPath(); p != "" {
		env = append(env, "PATH="+p)
	}
	if tok := c.token(); tok != "" {
		env = append(env, c.cfg.TokenVar+"="+tok)
	}
	return env
}

// classifyFailure turns a non-zero exit into the message shown to the user:
// stderr when present, then stdout, then the exit status.
func classifyFailure(result *CommandResult) error {
	msg := strings.TrimSpace(cleanANSI(result.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(cleanANSI(result.Stdout))
	}
	if msg == "" {
		msg = fmt.Sprintf("copilot exited with status %d", result.ExitCode)
	}
	return core.ErrAssistant(msg).WithDetail("exit_code", result.ExitCode)
}

func cleanANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
