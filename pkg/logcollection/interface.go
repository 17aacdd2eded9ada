package logcollection

import (
	"io"
	"time"
)

// StructuredLogger hides the logging backend from the rest of the keeper.
type StructuredLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	LogWithFields(level LogLevel, msg string, fields ...LogField)

	WithFields(fields ...LogField) StructuredLogger
	WithError(err error) StructuredLogger
	WithUnit(unitID string) StructuredLogger

	Sync() error
}

// LogCollector drains worker output streams into the keeper log.
type LogCollector interface {
	CollectFromStream(unitID string, stream io.Reader, streamType StreamType) error
	CollectFromProcess(unitID string, stdout, stderr io.Reader) error

	// ProcessStarted and ProcessExited write the lifecycle records of a spawned process
	// next to its output.
	ProcessStarted(unitID string, pid int)
	ProcessExited(unitID string, pid int, exitCode int, uptime time.Duration)

	GetUnitStatus(unitID string) (*UnitLogStatus, bool)
	Stop()
}

// LogLevel represents logging levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLogLevel maps a config string to a LogLevel.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch s {
	case "debug":
		return DebugLevel, true
	case "info", "":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	default:
		return InfoLevel, false
	}
}

// StreamType identifies the source stream
type StreamType string

const (
	StdoutStream StreamType = "stdout"
	StderrStream StreamType = "stderr"
)

// UnitLogStatus provides collection counters for a specific unit
type UnitLogStatus struct {
	UnitID         string    `json:"unit_id"`
	ActiveStreams  int       `json:"active_streams"`
	LinesProcessed int64     `json:"lines_processed"`
	BytesProcessed int64     `json:"bytes_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
