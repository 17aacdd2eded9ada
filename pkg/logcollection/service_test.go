package logcollection

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestAdapter(t *testing.T, format string) (*ZapAdapter, *syncBuffer) {
	out := &syncBuffer{}
	adapter, err := NewZapAdapter(ZapConfig{Level: "debug", Format: format, Writer: out})
	require.NoError(t, err)
	return adapter, out
}

func TestLogCollector_CollectFromProcess(t *testing.T) {
	adapter, out := newTestAdapter(t, "json")
	collector := NewLogCollector(adapter)

	stdout := strings.NewReader("listening on :8080\nready\n")
	stderr := strings.NewReader("deprecated option\n")

	require.NoError(t, collector.CollectFromProcess("nginx", stdout, stderr))
	collector.(*streamCollector).Wait()

	logged := out.String()
	assert.Contains(t, logged, `"msg":"listening on :8080"`)
	assert.Contains(t, logged, `"unit":"nginx"`)
	assert.Contains(t, logged, `"stream":"stderr"`)
	assert.Contains(t, logged, `"level":"warn"`)

	status, ok := collector.GetUnitStatus("nginx")
	require.True(t, ok)
	assert.Equal(t, int64(3), status.LinesProcessed)
	assert.Equal(t, 0, status.ActiveStreams)
}

func TestLogCollector_ProcessLifecycleRecords(t *testing.T) {
	adapter, out := newTestAdapter(t, "json")
	collector := NewLogCollector(adapter)

	collector.ProcessStarted("php", 4242)
	collector.ProcessExited("php", 4242, 255, 1500*time.Millisecond)

	logged := out.String()
	assert.Contains(t, logged, `"msg":"Process started"`)
	assert.Contains(t, logged, `"msg":"Process exited"`)
	assert.Contains(t, logged, `"component":"process"`)
	assert.Contains(t, logged, `"unit":"php"`)
	assert.Contains(t, logged, `"pid":4242`)
	assert.Contains(t, logged, `"exit_code":255`)
	assert.Contains(t, logged, `"level":"warn"`)
}

func TestLogCollector_DrainsOverlongLine(t *testing.T) {
	adapter, out := newTestAdapter(t, "console")
	collector := NewLogCollector(adapter)

	long := strings.Repeat("x", maxLineSize+10) + "\nafter\n"
	require.NoError(t, collector.CollectFromStream("chatty", strings.NewReader(long), StdoutStream))
	collector.(*streamCollector).Wait()

	assert.Contains(t, out.String(), "discarding the rest")
}

func TestLogCollector_Stopped(t *testing.T) {
	adapter, _ := newTestAdapter(t, "console")
	collector := NewLogCollector(adapter)
	collector.Stop()

	err := collector.CollectFromStream("late", strings.NewReader("x\n"), StdoutStream)
	assert.Error(t, err)

	_, ok := collector.GetUnitStatus("late")
	assert.False(t, ok)
}

func TestZapAdapter_ConsoleLayoutAndLevels(t *testing.T) {
	out := &syncBuffer{}
	adapter, err := NewZapAdapter(ZapConfig{Level: "info", Format: "console", Writer: out})
	require.NoError(t, err)

	adapter.Debugf("hidden %d", 1)
	adapter.WithUnit("mysql").Infof("started %s", "service")

	logged := out.String()
	assert.NotContains(t, logged, "hidden")
	assert.Contains(t, logged, "started service")
	assert.Contains(t, logged, `"unit": "mysql"`)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\t`, logged)
}

func TestZapAdapter_LogFuncsAndFile(t *testing.T) {
	path := t.TempDir() + "/logs/hsu-keeper.log"
	adapter, err := NewZapAdapter(ZapConfig{Level: "debug", Output: "none", File: path})
	require.NoError(t, err)

	funcs := adapter.LogFuncs()
	funcs.Warnf("unit %s restarted", "nginx")
	require.NoError(t, adapter.Close())

	data, err := readFile(path)
	require.NoError(t, err)
	assert.Contains(t, data, "unit nginx restarted")
}

func TestZapAdapter_InvalidOutput(t *testing.T) {
	_, err := NewZapAdapter(ZapConfig{Output: "syslog"})
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, WarnLevel, level)

	level, ok = ParseLogLevel("")
	assert.True(t, ok)
	assert.Equal(t, InfoLevel, level)

	_, ok = ParseLogLevel("trace")
	assert.False(t, ok)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
