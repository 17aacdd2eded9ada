package supervisor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

type fakeHandle struct {
	name     string
	exited   atomic.Bool
	pollErr  atomic.Bool
	stopped  atomic.Bool
	released atomic.Int32
	stopErr  error
}

func (h *fakeHandle) Poll() (unit.Status, error) {
	if h.pollErr.Load() {
		return unit.Status{}, errors.NewPollError("query failed", nil)
	}
	if h.exited.Load() || h.stopped.Load() {
		return unit.Status{Exited: true, ExitCode: 1, Detail: "exit status 1"}, nil
	}
	return unit.Running, nil
}

func (h *fakeHandle) Stop(ctx context.Context) error {
	h.stopped.Store(true)
	return h.stopErr
}

func (h *fakeHandle) Release() {
	h.released.Add(1)
}

func (h *fakeHandle) String() string {
	return h.name
}

// fakeLauncher records launches per unit. Handles of units listed in crash exit at once.
type fakeLauncher struct {
	mu      sync.Mutex
	handles map[string][]*fakeHandle
	crash   map[string]bool
	fail    map[string]bool
	failed  map[string]int
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		handles: make(map[string][]*fakeHandle),
		crash:   make(map[string]bool),
		fail:    make(map[string]bool),
		failed:  make(map[string]int),
	}
}

func (l *fakeLauncher) Launch(ctx context.Context, d unit.Descriptor) (unit.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fail[d.ID] {
		l.failed[d.ID]++
		return nil, errors.NewStartError("cannot start", nil).WithContext("unit", d.ID)
	}

	h := &fakeHandle{name: fmt.Sprintf("%s#%d", d.ID, len(l.handles[d.ID])+1)}
	if l.crash[d.ID] {
		h.exited.Store(true)
	}
	l.handles[d.ID] = append(l.handles[d.ID], h)
	return h, nil
}

func (l *fakeLauncher) starts(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles[id])
}

func (l *fakeLauncher) failures(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed[id]
}

func (l *fakeLauncher) last(id string) *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	hs := l.handles[id]
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

func (l *fakeLauncher) all(id string) []*fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeHandle(nil), l.handles[id]...)
}

func (l *fakeLauncher) setFail(id string, fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail[id] = fail
}

func processUnit(id string, enabled bool) unit.Descriptor {
	return unit.Descriptor{
		ID:      id,
		Kind:    unit.KindProcess,
		Process: &unit.ProcessSpec{Program: id},
		Enabled: enabled,
	}
}
