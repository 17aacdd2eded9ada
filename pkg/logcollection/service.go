package logcollection

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"
)

// maxLineSize bounds a single collected line. Past it the rest of the stream is discarded.
const maxLineSize = 256 * 1024

// streamCollector implements LogCollector on top of a StructuredLogger.
type streamCollector struct {
	logger StructuredLogger

	mu      sync.Mutex
	units   map[string]*UnitLogStatus
	stopped bool
	wg      sync.WaitGroup
}

// NewLogCollector creates a collector that writes every worker line through logger
// with unit and stream fields.
func NewLogCollector(logger StructuredLogger) LogCollector {
	return &streamCollector{
		logger: logger,
		units:  make(map[string]*UnitLogStatus),
	}
}

// CollectFromStream drains stream until EOF in a background goroutine.
func (s *streamCollector) CollectFromStream(unitID string, stream io.Reader, streamType StreamType) error {
	if stream == nil {
		return fmt.Errorf("nil %s stream for unit %s", streamType, unitID)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("log collector stopped")
	}
	status, ok := s.units[unitID]
	if !ok {
		status = &UnitLogStatus{UnitID: unitID}
		s.units[unitID] = status
	}
	status.ActiveStreams++
	s.wg.Add(1)
	s.mu.Unlock()

	go s.streamReader(unitID, stream, streamType)
	return nil
}

// CollectFromProcess collects both streams of a process; either may be nil.
func (s *streamCollector) CollectFromProcess(unitID string, stdout, stderr io.Reader) error {
	if stdout != nil {
		if err := s.CollectFromStream(unitID, stdout, StdoutStream); err != nil {
			return fmt.Errorf("stdout collection failed: %w", err)
		}
	}
	if stderr != nil {
		if err := s.CollectFromStream(unitID, stderr, StderrStream); err != nil {
			return fmt.Errorf("stderr collection failed: %w", err)
		}
	}
	return nil
}

func (s *streamCollector) ProcessStarted(unitID string, pid int) {
	s.logger.WithFields(Component("process"), Unit(unitID), PID(pid)).
		LogWithFields(InfoLevel, "Process started")
}

func (s *streamCollector) ProcessExited(unitID string, pid int, exitCode int, uptime time.Duration) {
	s.logger.WithFields(Component("process"), Unit(unitID), PID(pid)).
		LogWithFields(WarnLevel, "Process exited", Int("exit_code", exitCode), Duration("uptime", uptime))
}

func (s *streamCollector) streamReader(unitID string, stream io.Reader, streamType StreamType) {
	defer s.wg.Done()
	defer func() {
		if closer, ok := stream.(io.Closer); ok {
			_ = closer.Close()
		}
		s.mu.Lock()
		s.units[unitID].ActiveStreams--
		s.mu.Unlock()
	}()

	logger := s.logger.WithFields(Unit(unitID), Stream(streamType))
	level := InfoLevel
	if streamType == StderrStream {
		level = WarnLevel
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		s.mu.Lock()
		status := s.units[unitID]
		status.LinesProcessed++
		status.BytesProcessed += int64(len(line))
		status.LastActivity = time.Now()
		s.mu.Unlock()

		logger.LogWithFields(level, line)
	}

	if err := scanner.Err(); err != nil {
		logger.WithError(err).Warnf("Error reading from stream, discarding the rest")
		// keep draining so the worker never blocks on a full pipe
		_, _ = io.Copy(io.Discard, stream)
	}
}

// GetUnitStatus returns a copy of the counters for unitID.
func (s *streamCollector) GetUnitStatus(unitID string) (*UnitLogStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.units[unitID]
	if !ok {
		return nil, false
	}
	statusCopy := *status
	return &statusCopy, true
}

// Stop rejects new streams. Readers still attached to live workers end at EOF.
func (s *streamCollector) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Wait blocks until every reader has reached EOF. Used by tests.
func (s *streamCollector) Wait() {
	s.wg.Wait()
}
