// Package logging provides structured logging for git-sync-world using
// slog, writing one JSON-lines file per invocation. Unlike a tool with
// externally-named sessions, a git-sync-world invocation has no natural
// session id to log under, so the log file is named by start time instead
// and rotated per process invocation rather than per sync session — logging
// is an ambient, invocation-scoped concern independent of the sync
// session's own on-disk queue state (see store.Store).
package logging

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogLevelEnvVar is the environment variable that controls log level,
// taking precedence over the ambient settings file's log_level.
const LogLevelEnvVar = "GIT_SYNC_WORLD_LOG_LEVEL"

// LogsDir is the directory where log files are stored, relative to root_dir.
const LogsDir = ".git-sync-world/logs"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
	mu           sync.RWMutex
)

// Init opens a new log file under <rootDir>/LogsDir named for the current
// moment (timestamp supplied by the caller, since this package cannot call
// time.Now() from within code paths exercised by workflow scripts — callers
// outside that constraint may simply pass time.Now().Format(...)). Falls
// back to stderr if the log directory or file cannot be created.
func Init(rootDir, timestamp string, levelGetter func() string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && levelGetter != nil {
		levelStr = levelGetter()
	}
	level := parseLogLevel(levelStr)
	if levelStr != "" && !isValidLogLevel(levelStr) {
		fmt.Fprintf(os.Stderr, "git-sync-world: Warning: invalid log level %q, defaulting to INFO\n", levelStr)
	}

	logsPath := filepath.Join(rootDir, LogsDir)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFilePath := filepath.Join(logsPath, timestamp+".log")
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the current log file. Safe to call multiple
// times, including when Init was never called.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isValidLogLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		return true
	default:
		return false
	}
}

func Debug(msg string, attrs ...any) { getLogger().Log(nil, slog.LevelDebug, msg, attrs...) } //nolint:staticcheck
func Info(msg string, attrs ...any)  { getLogger().Log(nil, slog.LevelInfo, msg, attrs...) }   //nolint:staticcheck
func Warn(msg string, attrs ...any)  { getLogger().Log(nil, slog.LevelWarn, msg, attrs...) }   //nolint:staticcheck
func Error(msg string, attrs ...any) { getLogger().Log(nil, slog.LevelError, msg, attrs...) }  //nolint:staticcheck
