package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"skyvision/internal/config"

	"github.com/sirupsen/logrus"
)

// Log file names served by the /logs endpoints.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout.
type Logger struct {
	log    *logrus.Logger
	logDir string
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		log:    newLogrus(os.Stdout),
		logDir: config.LogDirectory,
	}

	logger.setupHooks()
	return logger
}

// NewWithWriter creates a Logger that only writes to w. No log files are kept.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{log: newLogrus(w)}
}

func newLogrus(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// setupHooks attaches one file hook per level.
func (l *Logger) setupHooks() {
	l.log.AddHook(newFileHook(filepath.Join(l.logDir, InfoFile), logrus.InfoLevel))
	l.log.AddHook(newFileHook(filepath.Join(l.logDir, WarningFile), logrus.WarnLevel))
	l.log.AddHook(newFileHook(filepath.Join(l.logDir, ErrorFile), logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// WithFields returns a logrus entry carrying structured fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.log.WithFields(logrus.Fields(fields))
}

// Directory returns the directory holding the per-level log files.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File content has been cleared: %s", fileName)
	return nil
}

// fileHook appends formatted entries of selected levels to a file.
type fileHook struct {
	path   string
	levels []logrus.Level
	mu     sync.Mutex
}

func newFileHook(path string, levels ...logrus.Level) *fileHook {
	return &fileHook{path: path, levels: levels}
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Reopened per entry so CleanLogs truncation is picked up.
	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write(line)
	return err
}
