// Package orchestrator implements the continuous task loop: it sweeps the
// vault for actionable tasks, drives an external reasoning agent over each
// one with prompt re-injection, and escalates what the agents cannot
// finish.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/digital-fte/fte/pkg/models"
)

// defaultBackendTimeout bounds a single agent invocation.
const defaultBackendTimeout = 5 * time.Minute

// ErrNoBackends is returned when the fallback chain is empty or every
// backend in it failed.
var ErrNoBackends = errors.New("no reasoning backends available")

// ReasoningBackend is a single external agent that can process a prompt.
type ReasoningBackend interface {
	Name() string
	// Invoke runs the backend with the prompt and returns its output.
	// Failure is a timeout, a missing executable, or a non-zero exit.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// execBackend runs an external agent CLI as a subprocess.
type execBackend struct {
	name       string
	command    string
	promptFlag string
	timeout    time.Duration
}

// NewExecBackend creates a ReasoningBackend that shells out to the
// configured command, passing the prompt via the prompt flag (or as the
// sole argument when the flag is empty).
func NewExecBackend(cfg models.BackendConfig) ReasoningBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &execBackend{
		name:       cfg.Name,
		command:    cfg.Command,
		promptFlag: cfg.PromptFlag,
		timeout:    timeout,
	}
}

func (b *execBackend) Name() string {
	return b.name
}

func (b *execBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	if _, err := exec.LookPath(b.command); err != nil {
		return "", fmt.Errorf("backend %s: command %q not found: %w", b.name, b.command, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var args []string
	if b.promptFlag != "" {
		args = []string{b.promptFlag, prompt}
	} else {
		args = []string{prompt}
	}

	cmd := exec.CommandContext(ctx, b.command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("backend %s: timed out after %s", b.name, b.timeout)
		}
		return "", fmt.Errorf("backend %s: %w: %s", b.name, err, truncate(string(output), 200))
	}

	return string(output), nil
}

// BackendsFromConfig builds the fallback chain from configuration,
// preserving list order and skipping disabled entries.
func BackendsFromConfig(configs []models.BackendConfig) []ReasoningBackend {
	var backends []ReasoningBackend
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		backends = append(backends, NewExecBackend(cfg))
	}
	return backends
}

// InvokeWithFallback tries each backend in order and returns the output
// and name of the first one that succeeds. Every backend failing returns
// the last error wrapped in ErrNoBackends context.
func InvokeWithFallback(ctx context.Context, prompt string, backends []ReasoningBackend) (string, string, error) {
	if len(backends) == 0 {
		return "", "", ErrNoBackends
	}

	var lastErr error
	for _, backend := range backends {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		output, err := backend.Invoke(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}
		return output, backend.Name(), nil
	}

	return "", "", fmt.Errorf("%w: last failure: %v", ErrNoBackends, lastErr)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
