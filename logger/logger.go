// Package logger holds the engine-wide logrus instance. Structural
// page and tree events (splits, merges, compaction, root moves) log at
// Debug; corruption and pin-accounting failures log at Error before
// being returned as typed errors. Log is usable before Init — it
// defaults to Info on stdout — so unit tests and library consumers
// need no setup.
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

// Log is the engine logger. Call sites use it directly
// (logger.Log.Debugf) so logrus's caller reporting attributes entries
// to the page or tree code that emitted them, not to a wrapper.
var Log = newLogger()

// Config selects the sinks and minimum level. EngineLog receives every
// entry at or above Level; ErrorLog additionally receives a copy of
// warn-and-worse entries, so corruption reports stay findable under a
// noisy debug stream.
type Config struct {
	Level     string
	EngineLog string
	ErrorLog  string
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetReportCaller(true)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.000",
		CallerPrettyfier: shortCaller,
	})
	return l
}

// shortCaller trims the reported frame to "pkg.Func" and
// "file.go:line" so page-level debug traffic stays one line.
func shortCaller(f *runtime.Frame) (function string, file string) {
	fn := f.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn, fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

// Init points Log at cfg's sinks. A sink that cannot be opened
// degrades to the console with a warning rather than failing engine
// startup; an unknown level keeps the current one.
func Init(cfg Config) error {
	if cfg.Level != "" {
		if level, err := logrus.ParseLevel(cfg.Level); err == nil {
			Log.SetLevel(level)
		} else {
			Log.Warnf("unknown log level %q, keeping %s", cfg.Level, Log.GetLevel())
		}
	}

	out := io.Writer(os.Stdout)
	if cfg.EngineLog != "" {
		f, err := openSink(cfg.EngineLog)
		if err != nil {
			Log.Warnf("engine log %s unavailable, staying on stdout: %v", cfg.EngineLog, err)
		} else {
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	Log.SetOutput(out)

	Log.ReplaceHooks(make(logrus.LevelHooks))
	if cfg.ErrorLog != "" {
		f, err := openSink(cfg.ErrorLog)
		if err != nil {
			Log.Warnf("error log %s unavailable: %v", cfg.ErrorLog, err)
		} else {
			Log.AddHook(&errorTee{out: f, formatter: Log.Formatter})
		}
	}
	return nil
}

func openSink(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// errorTee copies warn-and-worse entries to a second sink, already
// formatted. It never fails the original log call: a broken error sink
// must not take down the engine's primary logging.
type errorTee struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (t *errorTee) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

func (t *errorTee) Fire(entry *logrus.Entry) error {
	b, err := t.formatter.Format(entry)
	if err != nil {
		return nil
	}
	t.out.Write(b)
	return nil
}
