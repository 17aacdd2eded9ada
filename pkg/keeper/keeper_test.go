package keeper

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	corelogging "github.com/core-tools/hsu-core/pkg/logging"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveHandle struct {
	id      string
	stopped atomic.Bool
	onStop  func()
}

func (h *liveHandle) Poll() (unit.Status, error) {
	if h.stopped.Load() {
		return unit.Status{Exited: true, ExitCode: 0, Detail: "killed"}, nil
	}
	return unit.Running, nil
}

func (h *liveHandle) Stop(ctx context.Context) error {
	if h.onStop != nil {
		h.onStop()
	}
	h.stopped.Store(true)
	return nil
}

func (h *liveHandle) Release()       {}
func (h *liveHandle) String() string { return h.id }

type countingLauncher struct {
	mu      sync.Mutex
	handles []*liveHandle
	onStop  func()
}

func (l *countingLauncher) Launch(ctx context.Context, d unit.Descriptor) (unit.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := &liveHandle{id: d.ID, onStop: l.onStop}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *countingLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

type recordingReporter struct {
	mu     sync.Mutex
	states []lifecycle.State
}

func (r *recordingReporter) Report(status lifecycle.StatusReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, status.State)
	return nil
}

func (r *recordingReporter) all() []lifecycle.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lifecycle.State(nil), r.states...)
}

func testKeeper(t *testing.T, cfg *config.KeeperConfig, units []unit.Descriptor, l unit.Launcher) *Keeper {
	t.Helper()
	k := New(cfg, units, Options{}, nil, corelogging.NewLogger("", corelogging.LogFuncs{}), logging.NewNopLogger())
	k.launcher = l
	return k
}

func baseConfig() *config.KeeperConfig {
	return &config.KeeperConfig{Keeper: config.KeeperOptions{
		PollInterval: 10 * time.Millisecond,
		StopWaitHint: time.Second,
	}}
}

func TestKeeper_StopWaitsForEveryUnit(t *testing.T) {
	var stops atomic.Int32
	l := &countingLauncher{onStop: func() {
		time.Sleep(50 * time.Millisecond)
		stops.Add(1)
	}}

	units := []unit.Descriptor{
		{ID: "nginx", Kind: unit.KindProcess, Process: &unit.ProcessSpec{Program: "nginx"}, Enabled: true},
		{ID: "php", Kind: unit.KindProcess, Process: &unit.ProcessSpec{Program: "php-cgi"}, Enabled: true},
		{ID: "mysql", Kind: unit.KindService, Service: &unit.ServiceSpec{Name: "MySQL"}, Enabled: false},
	}
	k := testKeeper(t, baseConfig(), units, l)

	events := make(chan lifecycle.Event, 1)
	reporter := &recordingReporter{}
	result := make(chan error, 1)
	go func() { result <- k.Serve(events, reporter) }()

	require.Eventually(t, func() bool { return l.count() == 2 }, time.Second, time.Millisecond)
	events <- lifecycle.Stop

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("keeper did not stop")
	}

	assert.Equal(t, int32(2), stops.Load())
	assert.Equal(t, 2, l.count())

	states := reporter.all()
	assert.Equal(t, lifecycle.Running, states[0])
	assert.Equal(t, lifecycle.StopPending, states[1])
	assert.Equal(t, lifecycle.Stopped, states[len(states)-1])
}

func TestKeeper_ClosedEventsStopsUnitsSilently(t *testing.T) {
	l := &countingLauncher{}
	units := []unit.Descriptor{
		{ID: "nginx", Kind: unit.KindProcess, Process: &unit.ProcessSpec{Program: "nginx"}, Enabled: true},
	}
	k := testKeeper(t, baseConfig(), units, l)

	events := make(chan lifecycle.Event)
	reporter := &recordingReporter{}
	result := make(chan error, 1)
	go func() { result <- k.Serve(events, reporter) }()

	require.Eventually(t, func() bool { return l.count() == 1 }, time.Second, time.Millisecond)
	close(events)

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("keeper did not stop")
	}

	assert.True(t, l.handles[0].stopped.Load())
	assert.Equal(t, []lifecycle.State{lifecycle.Running}, reporter.all())
}

func TestStopHooks_CollectFailures(t *testing.T) {
	program := "false"
	args := []string(nil)
	if runtime.GOOS == "windows" {
		program = "cmd.exe"
		args = []string{"/c", "exit", "1"}
	}

	hooks := newStopHooks([]config.HookConfig{
		{Program: program, Args: args},
		{Program: "/nonexistent/keeper-hook"},
	}, logging.NewNopLogger())

	funcs := hooks.funcs()
	require.Len(t, funcs, 2)
	for _, fn := range funcs {
		fn()
	}

	err := hooks.err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestStopHooks_NoHooks(t *testing.T) {
	hooks := newStopHooks(nil, logging.NewNopLogger())
	assert.Empty(t, hooks.funcs())
	assert.NoError(t, hooks.err())
}
