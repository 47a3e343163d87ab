package task

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeAt(t *testing.T, r *Registry, clk interface{ Set(time.Time) }, at time.Time) domain.Task {
	t.Helper()
	task := addTask(t, r, synthesisRequest())
	clk.Set(at)
	done, err := r.Update(task.ID, domain.Completed(domain.SpeechSynthesisResult{
		Audio:  domain.ContentRef{Key: "speech/" + task.ID + ".mp3"},
		Format: domain.AudioFormatMP3,
	}))
	require.NoError(t, err)
	return done
}

func TestSweeper_EvictsOnlyExpiredCompletedTasks(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	now := epoch.Add(24 * time.Hour)

	old := completeAt(t, r, clk, now.Add(-61*time.Minute))
	recent := completeAt(t, r, clk, now.Add(-30*time.Minute))
	boundary := completeAt(t, r, clk, now.Add(-time.Hour))

	clk.Set(now.Add(-2 * time.Hour))
	failed := addTask(t, r, synthesisRequest())
	_, err := r.Update(failed.ID, domain.Failed(domain.NewTaskError(domain.ErrorKindNetwork, "down")))
	require.NoError(t, err)
	pending := addTask(t, r, synthesisRequest())

	var evicted []domain.Task
	s := NewSweeper(r, clk, DefaultSweeperConfig(), func(_ context.Context, tasks []domain.Task) {
		evicted = append(evicted, tasks...)
	}, testLogger())

	assert.Equal(t, 1, s.Sweep(now))

	require.Len(t, evicted, 1)
	assert.Equal(t, old.ID, evicted[0].ID)

	_, err = r.Get(old.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	for _, id := range []string{recent.ID, boundary.ID, failed.ID, pending.ID} {
		_, err := r.Get(id)
		assert.NoError(t, err, "task %s should survive", id)
	}
}

func TestSweeper_EmptyRegistry(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	called := false
	s := NewSweeper(r, clk, DefaultSweeperConfig(), func(context.Context, []domain.Task) {
		called = true
	}, testLogger())

	assert.Equal(t, 0, s.Sweep(epoch.Add(48*time.Hour)))
	assert.False(t, called)
}

func TestSweeper_RunsOnTick(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	task := completeAt(t, r, clk, epoch)

	s := NewSweeper(r, clk, SweeperConfig{Interval: 10 * time.Minute, Retention: time.Hour}, nil, testLogger())
	s.Start()
	s.Start()
	defer s.Stop()
	assert.Equal(t, 1, clk.TickerCount())

	clk.Advance(10 * time.Minute)
	time.Sleep(5 * time.Millisecond)
	_, err := r.Get(task.ID)
	require.NoError(t, err)

	// Ticks are dropped while a sweep is running, so keep the clock moving
	require.Eventually(t, func() bool {
		if r.Len() == 0 {
			return true
		}
		clk.Advance(10 * time.Minute)
		return false
	}, waitFor, 5*time.Millisecond)
}

func TestSweeper_StopHaltsTicks(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	completeAt(t, r, clk, epoch)

	s := NewSweeper(r, clk, SweeperConfig{Interval: time.Minute, Retention: time.Minute}, nil, testLogger())
	s.Start()
	s.Stop()
	s.Stop()
	assert.Equal(t, 0, clk.TickerCount())

	clk.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, r.Len())
}

func TestNewSweeper_AppliesDefaults(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	s := NewSweeper(r, clk, SweeperConfig{}, nil, testLogger())
	assert.Equal(t, DefaultSweeperConfig(), s.config)
}
