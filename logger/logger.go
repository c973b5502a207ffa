package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes messages of a single level to the shared zap core.
type Logger struct {
	level zapcore.Level
}

var (
	// Debug is a logger for debug level messages
	Debug = &Logger{level: zapcore.DebugLevel}
	// Info is a logger for infomation level messages
	Info = &Logger{level: zapcore.InfoLevel}
	// Warn is a logger for warning level messages
	Warn = &Logger{level: zapcore.WarnLevel}
	// Err is a logger for error level messages
	Err = &Logger{level: zapcore.ErrorLevel}

	// mu guards the variables below
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	custom *zap.Logger // SetLogger で設定されたロガー
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	output zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	prefix = "regression"
)

func init() {
	mu.Lock()
	rebuild()
	mu.Unlock()
}

// rebuild must be called with mu held.
func rebuild() {
	if custom != nil {
		sugar = custom.Named(prefix).Sugar()
		return
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), output, level)
	sugar = zap.New(core).Named(prefix).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Printf formats and writes a message at the logger's level.
func (l *Logger) Printf(format string, v ...interface{}) {
	s := current()
	switch l.level {
	case zapcore.DebugLevel:
		s.Debugf(format, v...)
	case zapcore.InfoLevel:
		s.Infof(format, v...)
	case zapcore.WarnLevel:
		s.Warnf(format, v...)
	default:
		s.Errorf(format, v...)
	}
}

// Println writes the operands at the logger's level.
func (l *Logger) Println(v ...interface{}) {
	s := current()
	switch l.level {
	case zapcore.DebugLevel:
		s.Debug(v...)
	case zapcore.InfoLevel:
		s.Info(v...)
	case zapcore.WarnLevel:
		s.Warn(v...)
	default:
		s.Error(v...)
	}
}

// With writes a structured message with key/value pairs at the logger's level.
func (l *Logger) With(msg string, keysAndValues ...interface{}) {
	s := current()
	switch l.level {
	case zapcore.DebugLevel:
		s.Debugw(msg, keysAndValues...)
	case zapcore.InfoLevel:
		s.Infow(msg, keysAndValues...)
	case zapcore.WarnLevel:
		s.Warnw(msg, keysAndValues...)
	default:
		s.Errorw(msg, keysAndValues...)
	}
}

// SetLogger : すべての種類のログを与えられた zap.Logger に置き換える
//
// The given logger keeps its own level and output: SetLogsLevel does not
// apply to it, SetLogsPrefix renames it and SetLogsOutput replaces it with
// the package's console logger writing to the new output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	custom = l
	rebuild()
}

// SetLogsLevel : 出力するログの最小レベルを設定する
func SetLogsLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// SetLogsOutput : すべての種類のログの出力先を変更する
func SetLogsOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	custom = nil
	output = zapcore.Lock(zapcore.AddSync(w))
	rebuild()
}

// SetLogsPrefix : すべての種類のログメッセージのPrefixを設定する
func SetLogsPrefix(p string) {
	mu.Lock()
	defer mu.Unlock()
	prefix = p
	rebuild()
}
