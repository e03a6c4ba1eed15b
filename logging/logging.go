package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	enableInfo        bool
	enableTracing     bool
	mutraceSubsystems sync.Mutex
	traceSubsystems   map[string]bool
	stdoutLogger      *log.Logger
	stderrLogger      *log.Logger
	infoLogger        *log.Logger
	warnLogger        *log.Logger
	traceLogger       *log.Logger
	profileLogger     *log.Logger
	file              io.WriteCloser
}

// Rotation controls the optional log file.
type Rotation struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func NewLogger(stdout io.Writer, stderr io.Writer) *Logger {
	l := &Logger{
		traceSubsystems: make(map[string]bool),
	}
	l.setupWriters(stdout, stderr)
	return l
}

// NewLoggerWithFile duplicates every line into a rotated log file.
func NewLoggerWithFile(stdout io.Writer, stderr io.Writer, rotation Rotation) *Logger {
	if rotation.Filename == "" {
		return NewLogger(stdout, stderr)
	}

	file := &lumberjack.Logger{
		Filename:   rotation.Filename,
		MaxSize:    rotation.MaxSize,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAge,
		Compress:   rotation.Compress,
	}
	l := &Logger{
		traceSubsystems: make(map[string]bool),
		file:            file,
	}
	l.setupWriters(io.MultiWriter(stdout, file), io.MultiWriter(stderr, file))
	return l
}

func (l *Logger) setupWriters(stdout io.Writer, stderr io.Writer) {
	l.stdoutLogger = log.NewWithOptions(stdout, log.Options{})
	l.stderrLogger = log.NewWithOptions(stderr, log.Options{})
	l.infoLogger = log.NewWithOptions(stdout, log.Options{Prefix: "info"})
	l.warnLogger = log.NewWithOptions(stderr, log.Options{Prefix: "warn"})
	l.traceLogger = log.NewWithOptions(stdout, log.Options{Prefix: "trace"})
	l.profileLogger = log.NewWithOptions(stderr, log.Options{Prefix: "profile"})
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.infoLogger.Printf(format, args...)
}

func (l *Logger) Stdout(format string, args ...interface{}) {
	l.stdoutLogger.Printf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.enableInfo {
		l.infoLogger.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.warnLogger.Printf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.stderrLogger.Printf(format, args...)
}

func (l *Logger) Profile(format string, args ...interface{}) {
	l.profileLogger.Printf(format, args...)
}

func (l *Logger) Trace(subsystem string, format string, args ...interface{}) {
	if l.enableTracing {
		l.mutraceSubsystems.Lock()
		_, exists := l.traceSubsystems[subsystem]
		if !exists {
			_, exists = l.traceSubsystems["all"]
		}
		l.mutraceSubsystems.Unlock()
		if exists {
			l.traceLogger.Printf(subsystem+": "+format, args...)
		}
	}
}

func (l *Logger) EnableInfo() {
	l.enableInfo = true
}

func (l *Logger) EnableTrace(traces string) {
	l.enableTracing = true
	l.mutraceSubsystems.Lock()
	defer l.mutraceSubsystems.Unlock()
	l.traceSubsystems = make(map[string]bool)
	for _, subsystem := range strings.Split(traces, ",") {
		l.traceSubsystems[strings.TrimSpace(subsystem)] = true
	}
}

// Discard returns a logger writing nowhere, for tests and library callers.
func Discard() *Logger {
	return NewLogger(io.Discard, io.Discard)
}
