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

const testPeriod = 10 * time.Millisecond

func runSupervisor(t *testing.T, sup *UnitSupervisor, signal *ShutdownSignal) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(signal)
	}()
	return done
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestUnitSupervisor_StartsOnEntryAndStopsOnSignal(t *testing.T) {
	l := newFakeLauncher()
	sup := NewUnitSupervisor(processUnit("svc", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	done := runSupervisor(t, sup, signal)

	require.Eventually(t, func() bool { return l.starts("svc") == 1 }, time.Second, time.Millisecond)
	assert.True(t, sup.Status().Live)

	signal.Set()
	waitClosed(t, done)

	h := l.last("svc")
	assert.True(t, h.stopped.Load())
	assert.Equal(t, int32(1), h.released.Load())
	assert.Equal(t, 1, l.starts("svc"))
	assert.False(t, sup.Status().Live)
}

func TestUnitSupervisor_RestartWithinOnePeriod(t *testing.T) {
	l := newFakeLauncher()
	period := 50 * time.Millisecond
	sup := NewUnitSupervisor(processUnit("web", true), l, Options{PollPeriod: period}, logging.NewNopLogger())
	signal := NewShutdownSignal()
	defer signal.Set()

	runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.starts("web") == 1 }, time.Second, time.Millisecond)

	killed := time.Now()
	l.last("web").exited.Store(true)

	require.Eventually(t, func() bool { return l.starts("web") == 2 }, time.Second, time.Millisecond)
	assert.LessOrEqual(t, time.Since(killed), period+40*time.Millisecond)

	first := l.all("web")[0]
	assert.Equal(t, int32(1), first.released.Load())
	assert.False(t, first.stopped.Load())
	assert.Equal(t, int64(1), sup.Status().Exits)
	assert.Equal(t, "exit status 1", sup.Status().LastExit)
}

func TestUnitSupervisor_PollErrorIsTreatedAsExit(t *testing.T) {
	l := newFakeLauncher()
	sup := NewUnitSupervisor(processUnit("db", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()
	defer signal.Set()

	runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.starts("db") == 1 }, time.Second, time.Millisecond)

	l.last("db").pollErr.Store(true)
	require.Eventually(t, func() bool { return l.starts("db") == 2 }, time.Second, time.Millisecond)
	assert.Contains(t, sup.Status().LastExit, "poll failed")
}

func TestUnitSupervisor_DisabledNeverLaunches(t *testing.T) {
	l := newFakeLauncher()
	sup := NewUnitSupervisor(processUnit("mysql", false), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	done := runSupervisor(t, sup, signal)
	time.Sleep(10 * testPeriod)
	signal.Set()
	waitClosed(t, done)

	assert.Equal(t, 0, l.starts("mysql"))
	assert.False(t, sup.Status().Live)
}

func TestUnitSupervisor_StartFailureRetriedEveryCycle(t *testing.T) {
	l := newFakeLauncher()
	l.setFail("php", true)
	sup := NewUnitSupervisor(processUnit("php", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()
	defer signal.Set()

	runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.failures("php") >= 3 }, time.Second, time.Millisecond)
	assert.False(t, sup.Status().Live)

	l.setFail("php", false)
	require.Eventually(t, func() bool { return l.starts("php") == 1 }, time.Second, time.Millisecond)
	assert.True(t, sup.Status().Live)
}

func TestUnitSupervisor_NoStartAfterSignal(t *testing.T) {
	l := newFakeLauncher()
	signal := NewShutdownSignal()
	signal.Set()

	sup := NewUnitSupervisor(processUnit("late", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	done := runSupervisor(t, sup, signal)
	waitClosed(t, done)

	assert.Equal(t, 0, l.starts("late"))
}

func TestUnitSupervisor_StopFailureIsIgnored(t *testing.T) {
	l := newFakeLauncher()
	sup := NewUnitSupervisor(processUnit("stuck", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	done := runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.starts("stuck") == 1 }, time.Second, time.Millisecond)
	l.last("stuck").stopErr = errors.NewStopError("access denied", nil)

	signal.Set()
	waitClosed(t, done)
	assert.Equal(t, int32(1), l.last("stuck").released.Load())
}

func TestUnitSupervisor_RuntimeDisableKeepsRunningHandle(t *testing.T) {
	l := newFakeLauncher()
	sup := NewUnitSupervisor(processUnit("worker", true), l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	done := runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.starts("worker") == 1 }, time.Second, time.Millisecond)

	assert.True(t, sup.SetEnabled(false))
	assert.False(t, sup.SetEnabled(false))

	time.Sleep(5 * testPeriod)
	h := l.last("worker")
	assert.False(t, h.stopped.Load())
	assert.True(t, sup.Status().Live)

	// an exit while disabled is observed but not restarted
	h.exited.Store(true)
	require.Eventually(t, func() bool { return !sup.Status().Live }, time.Second, time.Millisecond)
	time.Sleep(5 * testPeriod)
	assert.Equal(t, 1, l.starts("worker"))

	assert.True(t, sup.SetEnabled(true))
	require.Eventually(t, func() bool { return l.starts("worker") == 2 }, time.Second, time.Millisecond)

	signal.Set()
	waitClosed(t, done)
}

func TestUnitSupervisor_Backoff(t *testing.T) {
	l := newFakeLauncher()
	l.crash["flappy"] = true

	d := processUnit("flappy", true)
	d.Backoff = unit.BackoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffRate: 2}

	sup := NewUnitSupervisor(d, l, Options{PollPeriod: testPeriod}, logging.NewNopLogger())
	signal := NewShutdownSignal()

	done := runSupervisor(t, sup, signal)
	require.Eventually(t, func() bool { return l.starts("flappy") == 1 }, time.Second, time.Millisecond)

	// 100ms then 200ms before the second and third starts
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, l.starts("flappy"))
	require.Eventually(t, func() bool { return l.starts("flappy") == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, l.starts("flappy"))

	// the signal is still honored while waiting
	signal.Set()
	waitClosed(t, done)
	assert.LessOrEqual(t, l.starts("flappy"), 3)
}
