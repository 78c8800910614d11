package execbackend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yindia/dagrunner"
)

// runOne registers a single task built from fn and returns the scheduler's
// summary, exercising Task the same way a
// collaborator program would: through a Scheduler, since TaskFn's run
// method is unexported.
func runOne(t *testing.T, fn dagrunner.TaskFn) dagrunner.Summary {
	t.Helper()
	sched := dagrunner.NewScheduler(dagrunner.WithStoreResults(true))
	require.NoError(t, sched.Register(dagrunner.NewTask("cmd", fn)))
	return sched.Start()
}

func TestTask_SuccessCapturesOutput(t *testing.T) {
	summary := runOne(t, Task(Spec{Command: "echo", Args: []string{"hello"}}))
	assert.Empty(t, summary.Failed)
	assert.Equal(t, []string{"cmd"}, summary.Passed)
}

func TestTask_NonZeroExitIsError(t *testing.T) {
	summary := runOne(t, Task(Spec{Command: "false"}))
	assert.Equal(t, []string{"cmd"}, summary.Failed)
}

func TestTask_Timeout(t *testing.T) {
	summary := runOne(t, Task(Spec{Command: "sleep", Args: []string{"1"}, Timeout: 10 * time.Millisecond}))
	assert.Equal(t, []string{"cmd"}, summary.Failed)
	assert.Contains(t, summary.Failures["cmd"].Error, "timed out")
}
