package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"potholewatch/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to rotating files and stdout/stderr.
type Logger struct {
	infoLog    *zap.SugaredLogger
	warningLog *zap.SugaredLogger
	errorLog   *zap.SugaredLogger
	files      []*lumberjack.Logger
	logDir     string
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) *Logger {
	if err := os.MkdirAll(cfg.LogDirectory, 0o755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := &Logger{logDir: cfg.LogDirectory}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	build := func(name string, console zapcore.WriteSyncer) *zap.SugaredLogger {
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDirectory, name),
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
		l.files = append(l.files, file)
		core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(file), console), zapcore.DebugLevel)
		return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	}

	l.infoLog = build(InfoFile, zapcore.Lock(os.Stdout))
	l.warningLog = build(WarningFile, zapcore.Lock(os.Stdout))
	l.errorLog = build(ErrorFile, zapcore.Lock(os.Stderr))
	return l
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	nop := zap.NewNop().Sugar()
	return &Logger{infoLog: nop, warningLog: nop, errorLog: nop}
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.warningLog.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Errorf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	switch fileName {
	case InfoFile, WarningFile, ErrorFile:
	default:
		return fmt.Errorf("unknown log file %q", fileName)
	}
	if l.logDir == "" {
		return nil
	}
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil {
		l.Error("Error truncating %s: %v", fileName, err)
		return err
	}
	l.Info("File content has been cleared: %s", fileName)
	return nil
}

// Close flushes buffered entries and closes the log files.
func (l *Logger) Close() error {
	var err error
	for _, s := range []*zap.SugaredLogger{l.infoLog, l.warningLog, l.errorLog} {
		// stdout/stderr return EINVAL on Sync for terminals
		_ = s.Sync()
	}
	for _, f := range l.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}
