package validation

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// LogLevel orders log entries by importance.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// String returns the level's wire name.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLogLevel converts a level name to a LogLevel. Unknown names map
// to INFO.
func ParseLogLevel(name string) LogLevel {
	switch name {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "CRITICAL":
		return LevelCritical
	default:
		return LevelInfo
	}
}

// MarshalJSON writes the level as its name rather than a number.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON reads a level name.
func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*l = ParseLogLevel(name)
	return nil
}

// LogEntry is one structured record in the execution log buffer.
type LogEntry struct {
	// Sequence orders entries within one execution.
	Sequence int `json:"sequence"`
	// Timestamp is when the entry was written.
	Timestamp time.Time `json:"timestamp"`
	// Level is the entry's importance.
	Level LogLevel `json:"level"`
	// Category groups entries by concern (e.g. "orchestration").
	Category string `json:"category"`
	// Phase and Step are the ambient context at write time.
	Phase string `json:"phase,omitempty"`
	Step  string `json:"step,omitempty"`
	// Message is the log text.
	Message string `json:"message"`
	// Details carries optional free-form context.
	Details string `json:"details,omitempty"`
}

// LogSummary is a rollup of the buffer: counts per level and category,
// plus the flattened problem entries. The Controller's exported summary
// surfaces this without re-scanning the full buffer.
type LogSummary struct {
	ExecutionID     string           `json:"executionId"`
	TotalEntries    int              `json:"totalEntries"`
	CountsByLevel   map[string]int   `json:"countsByLevel"`
	CountsByCategory map[string]int  `json:"countsByCategory"`
	Errors          []LogEntry       `json:"errors"`
	Warnings        []LogEntry       `json:"warnings"`
}

// ExecutionLogger is an append-only structured log buffer scoped to one
// execution. The minimum level is fixed at construction; entries below
// it are dropped at write time and cannot be recovered later.
//
// Writes and reads may come from different goroutines (the Controller
// writes while a caller polls), so all access goes through the mutex.
type ExecutionLogger struct {
	mu          sync.RWMutex
	executionID string
	minLevel    LogLevel
	entries     []LogEntry
	phase       string
	step        string
	seq         int
}

// NewExecutionLogger creates a logger for one execution. Entries below
// minLevel are never recorded.
func NewExecutionLogger(executionID string, minLevel LogLevel) *ExecutionLogger {
	return &ExecutionLogger{
		executionID: executionID,
		minLevel:    minLevel,
	}
}

// ExecutionID returns the execution this logger is scoped to.
func (l *ExecutionLogger) ExecutionID() string {
	return l.executionID
}

// SetPhase sets the ambient phase context attached to subsequent
// entries. An empty string clears it (and the step with it).
func (l *ExecutionLogger) SetPhase(phase string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = phase
	l.step = ""
}

// SetStep sets the ambient step context attached to subsequent entries.
func (l *ExecutionLogger) SetStep(step string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step = step
}

// Log appends an entry at the given level. Below-threshold entries are
// dropped silently.
func (l *ExecutionLogger) Log(level LogLevel, category, message, details string) {
	if level < l.minLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.entries = append(l.entries, LogEntry{
		Sequence:  l.seq,
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Phase:     l.phase,
		Step:      l.step,
		Message:   message,
		Details:   details,
	})
}

// Debugf, Infof, Warnf, Errorf and Criticalf are formatting shorthands.
func (l *ExecutionLogger) Debugf(category, format string, args ...interface{}) {
	l.Log(LevelDebug, category, fmt.Sprintf(format, args...), "")
}

func (l *ExecutionLogger) Infof(category, format string, args ...interface{}) {
	l.Log(LevelInfo, category, fmt.Sprintf(format, args...), "")
}

func (l *ExecutionLogger) Warnf(category, format string, args ...interface{}) {
	l.Log(LevelWarn, category, fmt.Sprintf(format, args...), "")
}

func (l *ExecutionLogger) Errorf(category, format string, args ...interface{}) {
	l.Log(LevelError, category, fmt.Sprintf(format, args...), "")
}

func (l *ExecutionLogger) Criticalf(category, format string, args ...interface{}) {
	l.Log(LevelCritical, category, fmt.Sprintf(format, args...), "")
}

// GetLogs returns the entries at or above level, in append order.
func (l *ExecutionLogger) GetLogs(level LogLevel) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// GetLogsByCategory returns the entries with the given category.
func (l *ExecutionLogger) GetLogsByCategory(category string) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []LogEntry
	for _, e := range l.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// GetLogsByPhase returns the entries written while the given phase was
// the ambient context.
func (l *ExecutionLogger) GetLogsByPhase(phase string) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []LogEntry
	for _, e := range l.entries {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

// Export serializes the full buffer as indented JSON.
func (l *ExecutionLogger) Export() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	payload := struct {
		ExecutionID string     `json:"executionId"`
		Entries     []LogEntry `json:"entries"`
	}{
		ExecutionID: l.executionID,
		Entries:     l.entries,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export logs: %w", err)
	}
	return string(data), nil
}

// Summary computes the rollup of the current buffer contents.
func (l *ExecutionLogger) Summary() LogSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := LogSummary{
		ExecutionID:      l.executionID,
		TotalEntries:     len(l.entries),
		CountsByLevel:    make(map[string]int),
		CountsByCategory: make(map[string]int),
	}
	for _, e := range l.entries {
		summary.CountsByLevel[e.Level.String()]++
		summary.CountsByCategory[e.Category]++
		switch {
		case e.Level >= LevelError:
			summary.Errors = append(summary.Errors, e)
		case e.Level == LevelWarn:
			summary.Warnings = append(summary.Warnings, e)
		}
	}
	return summary
}
