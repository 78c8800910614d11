// Package execbackend adapts a shell command into a dagrunner task body.
// It is a collaborator package, not part of the scheduler core: the core
// only knows about dagrunner.TaskFn, never about processes or shells.
package execbackend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/yindia/dagrunner"
)

// Spec describes one shell command to run as a task body.
type Spec struct {
	Command    string
	Args       []string
	Env        map[string]string
	WorkingDir string
	Timeout    time.Duration
}

// Task wraps Spec as a dagrunner.TaskFn. The task's value on success is the
// command's combined stdout+stderr; a non-zero exit or context deadline is
// returned as an error, with the exit code recoverable via the wrapped
// *exec.ExitError.
func Task(spec Spec) dagrunner.TaskFn {
	return dagrunner.Nullary(func() (interface{}, error) {
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
		if spec.WorkingDir != "" {
			cmd.Dir = spec.WorkingDir
		}
		cmd.Env = mergeEnv(spec.Env)

		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		if err := cmd.Run(); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return output.String(), fmt.Errorf("%s: timed out after %v", spec.Command, timeout)
			}
			return output.String(), fmt.Errorf("%s: %w", spec.Command, err)
		}
		return output.String(), nil
	})
}

// mergeEnv layers spec-provided variables over the process environment,
// following BashBackend.RunTask's os.Environ()+EnvMap merge.
func mergeEnv(overrides map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			merged[parts[0]] = parts[1]
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
