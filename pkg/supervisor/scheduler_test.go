package supervisor

import (
	"testing"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_CrashingUnitDoesNotAffectOthers(t *testing.T) {
	l := newFakeLauncher()
	l.crash["php"] = true

	s := NewScheduler(l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	tasks := s.Start([]unit.Descriptor{processUnit("nginx", true), processUnit("php", true)}, signal)
	assert.Equal(t, 2, tasks.Remaining())

	require.Eventually(t, func() bool { return l.starts("php") >= 4 }, 2*time.Second, time.Millisecond)
	assert.False(t, tasks.Finished())

	signal.Set()
	tasks.Wait()

	assert.True(t, tasks.Finished())
	assert.Equal(t, 0, tasks.Remaining())
	assert.Equal(t, 1, l.starts("nginx"))
	assert.True(t, l.last("nginx").stopped.Load())

	// every crash was followed by exactly one replacement
	php := l.all("php")
	for _, h := range php[:len(php)-1] {
		assert.Equal(t, int32(1), h.released.Load(), h.name)
	}
}

func TestScheduler_DisabledUnitAmongEnabled(t *testing.T) {
	l := newFakeLauncher()
	s := NewScheduler(l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	tasks := s.Start([]unit.Descriptor{processUnit("nginx", true), processUnit("mysql", false)}, signal)

	require.Eventually(t, func() bool { return l.starts("nginx") == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * testPeriod)

	signal.Set()
	select {
	case <-tasks.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not finish")
	}
	assert.Equal(t, 0, l.starts("mysql"))
}

func TestScheduler_EmptyUnitSetFinishesImmediately(t *testing.T) {
	s := NewScheduler(newFakeLauncher(), Options{}, logging.NewNopLogger())
	tasks := s.Start(nil, NewShutdownSignal())

	select {
	case <-tasks.Done():
	case <-time.After(time.Second):
		t.Fatal("empty task set did not finish")
	}
	assert.Equal(t, 0, tasks.Len())
}

func TestScheduler_DuplicateIDsSkipped(t *testing.T) {
	l := newFakeLauncher()
	s := NewScheduler(l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	tasks := s.Start([]unit.Descriptor{processUnit("a", true), processUnit("a", true)}, signal)
	assert.Equal(t, 1, tasks.Len())

	require.Eventually(t, func() bool { return l.starts("a") == 1 }, time.Second, time.Millisecond)
	signal.Set()
	tasks.Wait()
	assert.Equal(t, 1, l.starts("a"))
}

func TestTaskSet_SetEnabledAndStatuses(t *testing.T) {
	l := newFakeLauncher()
	s := NewScheduler(l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	tasks := s.Start([]unit.Descriptor{processUnit("a", false), processUnit("b", true)}, signal)
	defer func() {
		signal.Set()
		tasks.Wait()
	}()

	_, err := tasks.SetEnabled("missing", true)
	assert.True(t, errors.IsNotFoundError(err))

	changed, err := tasks.SetEnabled("a", true)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Eventually(t, func() bool { return l.starts("a") == 1 }, time.Second, time.Millisecond)

	statuses := tasks.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].ID)
	assert.True(t, statuses[0].Enabled)
	assert.Equal(t, "b", statuses[1].ID)

	st, ok := tasks.Status("b")
	assert.True(t, ok)
	assert.Equal(t, unit.KindProcess, st.Kind)
}
