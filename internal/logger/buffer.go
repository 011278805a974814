package logger

import (
	"encoding/json"
)

const defaultBufferSize = 1000

// LogEntry is a parsed log line kept for the logs endpoint.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogBuffer implements io.Writer and keeps the most recent zerolog entries.
type LogBuffer struct {
	entries *RingBuffer[LogEntry]
}

// NewLogBuffer creates a buffer holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: NewRingBuffer[LogEntry](size)}
}

// Write receives one JSON log line from zerolog.
func (b *LogBuffer) Write(p []byte) (int, error) {
	entry, err := parseLogEntry(p)
	if err != nil {
		return len(p), nil //nolint:nilerr // malformed lines are dropped
	}
	b.entries.Push(entry)
	return len(p), nil
}

// GetRecentLogs returns all buffered entries, oldest first.
func (b *LogBuffer) GetRecentLogs() []LogEntry {
	return b.entries.GetAll()
}

func parseLogEntry(data []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{Fields: make(map[string]any)}
	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
		delete(raw, "time")
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}
	return entry, nil
}
