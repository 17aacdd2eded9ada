package logcollection

import "time"

// LogField is a structured log field, independent of the logging backend.
type LogField struct {
	Key   string
	Value interface{}
	Type  FieldType
}

// FieldType identifies how the backend encodes the value.
type FieldType int

const (
	StringField FieldType = iota
	IntField
	DurationField
	ErrorField
)

func String(key, value string) LogField {
	return LogField{Key: key, Value: value, Type: StringField}
}

func Int(key string, value int) LogField {
	return LogField{Key: key, Value: value, Type: IntField}
}

func Duration(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value, Type: DurationField}
}

// Error creates an error field (always uses "error" as key)
func Error(err error) LogField {
	return LogField{Key: "error", Value: err, Type: ErrorField}
}

// Unit creates a unit field
func Unit(unitID string) LogField {
	return String("unit", unitID)
}

// Stream creates a stream field
func Stream(stream StreamType) LogField {
	return String("stream", string(stream))
}

// Component names the part of the keeper a record comes from.
func Component(component string) LogField {
	return String("component", component)
}

// PID creates a process ID field
func PID(pid int) LogField {
	return Int("pid", pid)
}
