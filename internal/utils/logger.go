package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level orders log severities; lines below the logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string (debug, info, warn, error) to a Level.
// Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger writes timestamped lines to a log file (and allows reading recent data).
type Logger struct {
	mu        sync.Mutex
	level     Level
	out       io.Writer
	writeFile *os.File
	readFile  *os.File
}

// NewLogger opens the given log file for appending and a parallel read handle.
// An empty path or a file that cannot be opened makes the logger write to stdout.
func NewLogger(logFile string) *Logger {
	logger := &Logger{level: LevelInfo, out: os.Stdout}
	if strings.TrimSpace(logFile) == "" {
		return logger
	}

	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	var err error
	logger.writeFile, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format("2006-01-02 15:04:05"), logFile, err)
		return logger
	}
	logger.readFile, err = os.Open(logFile)
	if err != nil {
		logger.Write(fmt.Sprintf("Error opening log file for reading (%s): %v", logFile, err))
	}
	return logger
}

// SetLevel changes the minimum level written by the leveled helpers.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// SetOutput redirects lines to w when no log file is open.
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

// Write appends a timestamped message to the log (or stdout when no file).
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logMessage := fmt.Sprintf("%s: %s\n", timestamp, message)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		l.writeFile.WriteString(logMessage)
		l.writeFile.Sync()
	} else {
		io.WriteString(l.out, logMessage)
	}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	min := l.level
	l.mu.Unlock()
	if level < min {
		return
	}
	l.Write("[" + level.String() + "] " + fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// Read reads up to 1 KiB from the current read handle for quick previews.
func (l *Logger) Read() string {
	if l == nil || l.readFile == nil {
		return ""
	}
	buf := make([]byte, 1024)
	n, _ := l.readFile.Read(buf)
	return string(buf[:n])
}

// Close flushes and closes underlying file handles.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		l.writeFile.Close()
		l.writeFile = nil
	}
	if l.readFile != nil {
		l.readFile.Close()
		l.readFile = nil
	}
}

// Writer returns the destination used for log lines, for wiring request logs.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		return l.writeFile
	}
	return l.out
}
