// Package executor implements Royale's Local Executor (§4.4): it launches
// one child process per trial, feeds it the trial's input on stdin, and
// classifies the child's termination into a terminal Trial status.
//
// Timeouts use a context deadline: a trial whose deadline expires is
// classified as ErrorCode with category "timeout" (value 124).
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/trial"
)

// Local runs trials as bare child processes on the local machine.
type Local struct{}

func NewLocal() *Local { return &Local{} }

// ExecTrial runs one trial to completion. The returned error is non-nil
// only when the caller's own context was already done before dispatch
// began; every process-level failure is folded into the returned Trial's
// terminal status instead of being propagated as a Go error.
func (l *Local) ExecTrial(ctx context.Context, exp *experiment.Experiment, t trial.Trial) (trial.Trial, error) {
	if err := ctx.Err(); err != nil {
		return t, err
	}

	argv := exp.Cmd()
	if len(argv) == 0 {
		return withErrorCode(t, 1, "exec", "experiment has an empty command"), nil
	}

	resolved, err := resolveExecutable(argv[0], exp.Cd())
	if err != nil {
		return withErrorCode(t, 1, "exec", err.Error()), nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	timedOut := func() bool { return false }
	if exp.Timeout() > 0 {
		runCtx, cancel = context.WithTimeout(ctx, exp.Timeout())
		defer cancel()
		timedOut = func() bool { return runCtx.Err() == context.DeadlineExceeded }
	}

	cmd := exec.CommandContext(runCtx, resolved, argv[1:]...)
	cmd.Dir = exp.Cd()
	cmd.Env = mergedEnv(exp.Env())

	inputJSON, err := json.Marshal(t.Input)
	if err != nil {
		return withErrorCode(t, 1, "marshal", fmt.Sprintf("marshaling trial input: %v", err)), nil
	}
	cmd.Stdin = bytes.NewReader(inputJSON)

	// Setting distinct io.Writer values for Stdout/Stderr makes os/exec
	// copy both concurrently via its own goroutines, avoiding the
	// pipe-buffer deadlock the source avoids explicitly.
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stdout, stderr := stdoutBuf.String(), stderrBuf.String()

	if timedOut() {
		return withErrorCode(t, 124, "timeout", "trial exceeded experiment timeout"), nil
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			t.Status = trial.NewErrorStatus(trial.NewExitStatus(exitErr.ExitCode(), stdout, stderr))
			return t, nil
		}
		return withErrorCode(t, 1, "spawn", runErr.Error()), nil
	}

	var out trial.TrialOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Status = trial.NewErrorStatus(trial.NewBadOutput(stdout, stderr))
		return t, nil
	}
	t.Status = trial.NewCompleteStatus(out, stderr)
	return t, nil
}

func withErrorCode(t trial.Trial, value int, category, message string) trial.Trial {
	t.Status = trial.NewErrorStatus(trial.NewErrorCode(value, category, message, "", ""))
	return t
}

// mergedEnv overlays exp.Env on top of the parent process's environment,
// with exp.Env entries overriding same-named inherited variables (the
// env-merging behavior SPEC_FULL.md §9 resolves as "should apply").
func mergedEnv(overrides map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// resolveExecutable resolves argv[0] against the current search path
// extended by cwd/exp.cd, per §4.4 step 1.
func resolveExecutable(name, cd string) (string, error) {
	if strings.Contains(name, "/") {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("resolving %q: %w", name, err)
		}
		return name, nil
	}

	pathEnv := os.Getenv("PATH")
	if cd != "" {
		pathEnv = cd + string(os.PathListSeparator) + pathEnv
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	// Fall through to exec.LookPath for platform-specific PATHEXT handling
	// and for names resolvable purely from the unmodified PATH.
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("executable %q not found on PATH (extended by %q)", name, cd)
}
