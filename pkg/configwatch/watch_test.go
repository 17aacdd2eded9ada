package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/atomicfile"
	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"

	"vawter.tech/stopper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingToggler struct {
	mu      sync.Mutex
	enabled map[string]bool
}

func newRecordingToggler() *recordingToggler {
	return &recordingToggler{enabled: make(map[string]bool)}
}

func (r *recordingToggler) SetEnabled(id string, enabled bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.enabled[id]
	r.enabled[id] = enabled
	return !ok || prev != enabled, nil
}

func (r *recordingToggler) get(id string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.enabled[id]
	return v, ok
}

const initialConfig = `
units:
  - id: nginx
    process: {program: nginx}
  - id: mysql
    enabled: false
    service: {name: MySQL}
`

func setup(t *testing.T) (string, []unit.Descriptor) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(initialConfig), 0644))
	_, descriptors, err := config.Load(path)
	require.NoError(t, err)
	return path, descriptors
}

func TestReload_AppliesKnownUnitsOnly(t *testing.T) {
	path, descriptors := setup(t)
	toggler := newRecordingToggler()

	w, err := Start(context.Background(), path, descriptors, toggler, Options{}, logging.NewNopLogger())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
units:
  - id: nginx
    enabled: false
    process: {program: nginx}
  - id: redis
    process: {program: redis-server}
`), 0644))
	require.NoError(t, w.Reload())

	v, ok := toggler.get("nginx")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = toggler.get("redis")
	assert.False(t, ok)
	_, ok = toggler.get("mysql")
	assert.False(t, ok)
}

func TestReload_InvalidConfigIsIgnored(t *testing.T) {
	path, descriptors := setup(t)
	toggler := newRecordingToggler()

	w, err := Start(context.Background(), path, descriptors, toggler, Options{}, logging.NewNopLogger())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("units: ["), 0644))
	assert.Error(t, w.Reload())
	assert.Empty(t, toggler.enabled)
}

func TestWatcher_PicksUpAtomicRewrite(t *testing.T) {
	path, descriptors := setup(t)
	toggler := newRecordingToggler()

	w, err := Start(context.Background(), path, descriptors, toggler, Options{Debounce: 20 * time.Millisecond}, logging.NewNopLogger())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, config.SetUnitEnabled(path, "mysql", true))

	require.Eventually(t, func() bool {
		v, ok := toggler.get("mysql")
		return ok && v
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_RetriesUnreadableFile(t *testing.T) {
	path, _ := setup(t)
	toggler := newRecordingToggler()

	// no fsnotify here, only the retry can pick up the file
	w := &Watcher{
		path:    path,
		known:   map[string]bool{"nginx": true, "mysql": true},
		toggler: toggler,
		options: Options{Debounce: 20 * time.Millisecond},
		logger:  logging.NewNopLogger(),
		sctx:    stopper.WithContext(context.Background()),
	}
	defer w.Stop()

	require.NoError(t, os.Remove(path))
	w.schedule()

	time.Sleep(50 * time.Millisecond)
	_, ok := toggler.get("mysql")
	require.False(t, ok)

	require.NoError(t, atomicfile.WriteFile(path, []byte(initialConfig), 0644))

	require.Eventually(t, func() bool {
		v, ok := toggler.get("mysql")
		return ok && !v
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopsWithContext(t *testing.T) {
	path, descriptors := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := Start(ctx, path, descriptors, newRecordingToggler(), Options{}, logging.NewNopLogger())
	require.NoError(t, err)

	cancel()
	assert.NoError(t, w.Stop())
}
