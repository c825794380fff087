package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ParseLevel converts a config string into a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "", "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Process-wide defaults picked up by every logger on its next write.
var (
	defaultMu      sync.RWMutex
	defaultLevel   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	defaultOutputs = []io.Writer{os.Stdout}
	defaultGen     uint64
)

// Configure sets the shared minimum level and output writers.
// Passing no outputs keeps the current ones.
func Configure(level LogLevel, outputs ...io.Writer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLevel.SetLevel(level.zapLevel())
	if len(outputs) > 0 {
		defaultOutputs = append([]io.Writer(nil), outputs...)
	}
	defaultGen++
}

// Logger provides structured logging for one component
type Logger struct {
	component string

	mu       sync.Mutex
	level    *zap.AtomicLevel
	extra    []io.Writer
	fileOnly bool
	zl       *zap.Logger
	gen      uint64
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// NewWriterLogger creates a logger that writes only to w, ignoring
// the shared outputs
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{component: component, extra: []io.Writer{w}, fileOnly: true}
}

// SetMinLevel overrides the shared level for this logger only
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl := zap.NewAtomicLevelAt(level.zapLevel())
	l.level = &lvl
	l.zl = nil
	return l
}

// AddOutput adds an output writer in addition to the shared outputs
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extra = append(l.extra, w)
	l.zl = nil
	return l
}

func (l *Logger) core() *zap.Logger {
	defaultMu.RLock()
	gen := defaultGen
	outputs := append([]io.Writer(nil), defaultOutputs...)
	defaultMu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.zl != nil && l.gen == gen {
		return l.zl
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeCaller = nil
	enc.CallerKey = ""
	enc.StacktraceKey = ""

	if l.fileOnly {
		outputs = nil
	}

	level := zapcore.LevelEnabler(defaultLevel)
	if l.level != nil {
		level = l.level
	}

	sinks := make([]zapcore.WriteSyncer, 0, len(outputs)+len(l.extra))
	for _, w := range append(outputs, l.extra...) {
		sinks = append(sinks, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.NewMultiWriteSyncer(sinks...), level)
	l.zl = zap.New(core).Named(l.component)
	l.gen = gen
	return l.zl
}

func (l *Logger) log(level LogLevel, message string, err error, context map[string]interface{}) {
	ce := l.core().Check(level.zapLevel(), message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, len(context)+1)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, context[k]))
	}
	ce.Write(fields...)
}

// Sync flushes buffered output
func (l *Logger) Sync() error {
	return l.core().Sync()
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelDebug, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelInfo, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelWarn, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(LogLevelError, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(LogLevelError, message, err, context)
}

// WithContext returns a logger that includes context on every line
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ForAccount returns a logger keyed by the account's index
func (l *Logger) ForAccount(index int) *ContextLogger {
	return l.WithContext(map[string]interface{}{"account": fmt.Sprintf("%02d", index)})
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

// With returns a copy of the context logger with one more key
func (cl *ContextLogger) With(key string, value interface{}) *ContextLogger {
	ctx := make(map[string]interface{}, len(cl.context)+1)
	for k, v := range cl.context {
		ctx[k] = v
	}
	ctx[key] = value
	return &ContextLogger{logger: cl.logger, context: ctx}
}

func (cl *ContextLogger) merged(extra map[string]interface{}) map[string]interface{} {
	if len(extra) == 0 {
		return cl.context
	}
	ctx := make(map[string]interface{}, len(cl.context)+len(extra))
	for k, v := range cl.context {
		ctx[k] = v
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.log(LogLevelDebug, message, nil, cl.context)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.log(LogLevelInfo, message, nil, cl.context)
}

// InfoWithContext logs an info message with pre-set and extra context
func (cl *ContextLogger) InfoWithContext(message string, context map[string]interface{}) {
	cl.logger.log(LogLevelInfo, message, nil, cl.merged(context))
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.log(LogLevelWarn, message, nil, cl.context)
}

// WarnWithContext logs a warning message with pre-set and extra context
func (cl *ContextLogger) WarnWithContext(message string, context map[string]interface{}) {
	cl.logger.log(LogLevelWarn, message, nil, cl.merged(context))
}

// Error logs an error message with pre-set context
func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.log(LogLevelError, message, err, cl.context)
}
