package dagrunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_DurationZeroBeforeStop(t *testing.T) {
	var timer Timer
	assert.Equal(t, time.Duration(0), timer.Duration())
	timer.Start()
	assert.Equal(t, time.Duration(0), timer.Duration(), "duration is zero until Stop is called")
}

func TestTimer_StartStop(t *testing.T) {
	var timer Timer
	timer.Start()
	time.Sleep(2 * time.Millisecond)
	timer.Stop()

	assert.False(t, timer.StartedAt().IsZero())
	assert.False(t, timer.FinishedAt().IsZero())
	assert.Greater(t, timer.Duration(), time.Duration(0))
}
