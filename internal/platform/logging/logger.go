// Package logging builds the job logger: logrus entries written to stdout
// and/or a lumberjack-rotated file whose retention is applied when the run
// finishes.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Options mirror the LOG_* environment settings.
type Options struct {
	Path       string
	Level      string
	Format     string // text | json
	Output     string // stdout | file | both
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// JobLogger implements ports.Logger.
type JobLogger struct {
	entry *logrus.Entry
	file  *lumberjack.Logger
}

func New(processName string, opts Options) (*JobLogger, error) {
	var writers []io.Writer
	var file *lumberjack.Logger

	if opts.Output == "file" || opts.Output == "both" {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("new logger: create log directory %q: %w", opts.Path, err)
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Path, processName+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		writers = append(writers, file)
	}
	if opts.Output == "stdout" || opts.Output == "both" || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l := newLogrus(opts, io.MultiWriter(writers...))
	return &JobLogger{
		entry: l.WithField("process", processName),
		file:  file,
	}, nil
}

// NewWithWriter logs to w only; Finish does not rotate anything.
func NewWithWriter(processName string, w io.Writer) *JobLogger {
	l := newLogrus(Options{Level: "debug", Format: "text"}, w)
	return &JobLogger{entry: l.WithField("process", processName)}
}

func newLogrus(opts Options, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}
	return l
}

// WithField returns a logger carrying an extra field on every entry.
func (l *JobLogger) WithField(key string, value any) *JobLogger {
	return &JobLogger{entry: l.entry.WithField(key, value), file: l.file}
}

// Entry exposes the underlying logrus entry for structured logging.
func (l *JobLogger) Entry() *logrus.Entry { return l.entry }

func (l *JobLogger) Info(msg string)  { l.entry.Info(msg) }
func (l *JobLogger) Warn(msg string)  { l.entry.Warn(msg) }
func (l *JobLogger) Error(msg string) { l.entry.Error(msg) }

// Finish logs msg and rotates the log file. Rotation makes lumberjack prune
// backups beyond MaxBackups / MaxAge.
func (l *JobLogger) Finish(msg string) error {
	l.entry.WithField("phase", "finish").Info(msg)
	if l.file == nil {
		return nil
	}

	var errs []error
	if err := l.file.Rotate(); err != nil {
		errs = append(errs, fmt.Errorf("rotate: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("finish log %q: %w", l.file.Filename, err)
	}
	return nil
}
