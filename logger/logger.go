package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the process-wide engine log instance.
	Logger *logrus.Logger
)

// LogConfig carries the log destinations and level.
type LogConfig struct {
	LogPath  string
	LogLevel string
}

// PlainFormatter renders entries as "[time] [LEVL] (caller) message".
type PlainFormatter struct {
	TimestampFormat string
}

// Format implements the logrus.Formatter interface.
func (f *PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	msg := fmt.Sprintf("[%s] [%s] (%s) %s\n",
		timestamp,
		level,
		callerInfo(),
		entry.Message)

	return []byte(msg), nil
}

// callerInfo walks the stack past the logging frames to the real caller.
func callerInfo() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "logrus") ||
			strings.Contains(file, "logger/logger.go") {
			continue
		}
		funcName := runtime.FuncForPC(pc).Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), funcName, line)
	}
	return "unknown:unknown:0"
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&PlainFormatter{TimestampFormat: "15:04:05 2006/01/02"})
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetOutput(os.Stderr)
}

// InitLogger reconfigures the global logger from config.
func InitLogger(config LogConfig) error {
	Logger.SetLevel(parseLogLevel(config.LogLevel))

	if config.LogPath == "" {
		Logger.SetOutput(os.Stderr)
		return nil
	}
	logFile, err := openLogFile(config.LogPath)
	if err != nil {
		return err
	}
	Logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// Trace records entry into an engine operation at debug level.
func Trace(op string) {
	Logger.Debug(op)
}

func Info(args ...interface{}) {
	Logger.Info(args...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debug(args ...interface{}) {
	Logger.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warn(args ...interface{}) {
	Logger.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Error(args ...interface{}) {
	Logger.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
