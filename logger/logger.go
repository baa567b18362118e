// Package logger provides levelled, structured logging for the simulation
// engine, backed by zap, plus assertion helpers used to guard invariants.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the log level for the simulation engine.
type Level int8

const (
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	MinLevel           = OffLevel
	DefaultLevel       = InfoLevel
)

var (
	cfg          zap.Config
	zaplogger    *zap.Logger
	currentLevel Level
	zapLevels    = []zapcore.Level{zapcore.FatalLevel + 1, zapcore.FatalLevel, zapcore.PanicLevel,
		zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel, zapcore.InfoLevel, zapcore.DebugLevel,
		zapcore.DebugLevel}
)

func init() {
	currentLevel = DefaultLevel

	cfgJSON := []byte(`{
		"level": "debug",
		"outputPaths": ["stderr"],
		"errorOutputPaths": ["stderr"],
		"encoding": "console",
		"encoderConfig": {
			"messageKey": "message",
			"levelKey": "level",
			"levelEncoder": "lowercase"
		}
	}`)
	if err := json.Unmarshal(cfgJSON, &cfg); err != nil {
		panic(err)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	rebuildLoggerFromCfg()
}

// SetLevel sets the log level.
func SetLevel(lv Level) {
	currentLevel = lv
}

// GetLevel returns the current log level.
func GetLevel() Level {
	return currentLevel
}

// SetOutput redirects log output, e.g. SetOutput([]string{"stderr", "run.log"}).
func SetOutput(outputs []string) {
	cfg.OutputPaths = outputs
	rebuildLoggerFromCfg()
}

func rebuildLoggerFromCfg() {
	newLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	if zaplogger != nil {
		_ = zaplogger.Sync()
	}
	zaplogger = newLogger
}

func getMessage(template string, fmtArgs []interface{}) string {
	if len(fmtArgs) == 0 {
		return template
	}
	if template != "" {
		return fmt.Sprintf(template, fmtArgs...)
	}
	if len(fmtArgs) == 1 {
		if str, ok := fmtArgs[0].(string); ok {
			return str
		}
	}
	return fmt.Sprint(fmtArgs...)
}

// Logf outputs a formatted log message at the given level.
func Logf(level Level, format string, args []interface{}) {
	if level > currentLevel {
		return
	}
	timeStr := time.Now().Format("2006-01-02 15:04:05.000") + " - "
	zaplogger.Log(zapLevels[level-MinLevel], timeStr+getMessage(format, args))
}

// Log outputs a log value at the given level.
func Log(level Level, msg interface{}) {
	Logf(level, "", []interface{}{msg})
}

func TraceError(format string, args ...interface{}) {
	Error(string(debug.Stack()))
	Errorf(format, args...)
}

func Tracef(format string, args ...interface{}) { Logf(TraceLevel, format, args) }
func Debugf(format string, args ...interface{}) { Logf(DebugLevel, format, args) }
func Infof(format string, args ...interface{})  { Logf(InfoLevel, format, args) }
func Warnf(format string, args ...interface{})  { Logf(WarnLevel, format, args) }
func Errorf(format string, args ...interface{}) { Logf(ErrorLevel, format, args) }
func Panicf(format string, args ...interface{}) { Logf(PanicLevel, format, args) }
func Fatalf(format string, args ...interface{}) { Logf(FatalLevel, format, args) }

func Error(args ...interface{}) { Log(ErrorLevel, args) }
func Panic(args ...interface{}) { Log(PanicLevel, args) }
func Fatal(args ...interface{}) { Log(FatalLevel, args) }

func PanicIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Panic(args...)
}

func FatalIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Fatal(args...)
}

type assertLogger struct{}

func (t assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}
