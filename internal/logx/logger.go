// Package logx provides the leveled logger used throughout layerfs.
// It is deliberately small: every package that can block or fail (the
// resolver, the scanners, the transform streams) takes an injected
// *Logger rather than reaching for a process-wide default, so callers
// can silence or redirect diagnostics per resolver context.
package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes leveled, optionally colorized and rotated log lines.
type Logger struct {
	writer io.Writer

	Name  string
	Level Level

	TimeFormat string
	File       string
	NoColor    bool
	Rotation   *Rotation
}

// Rotation configures file-backed rotation via lumberjack.
type Rotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// New constructs a Logger writing to stdout (colorized if the stream is a
// terminal) and, if file is non-empty, to a rotated log file.
func New(name string, level Level, file string) *Logger {
	l := &Logger{
		Name:       name,
		Level:      level,
		File:       file,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		Rotation: &Rotation{
			MaxSize:    128,
			MaxBackups: 5,
			MaxAge:     16,
		},
	}
	l.setupWriter()
	return l
}

func (l *Logger) setupWriter() {
	writers := []io.Writer{os.Stdout}
	if l.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   l.File,
			MaxSize:    l.Rotation.MaxSize,
			MaxBackups: l.Rotation.MaxBackups,
			MaxAge:     l.Rotation.MaxAge,
			Compress:   l.Rotation.Compress,
		})
	}
	l.writer = io.MultiWriter(writers...)
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.Level {
		return
	}

	timestamp := time.Now().Format(l.TimeFormat)
	formatted := fmt.Sprintf(msg, args...)
	prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
	if l.Name != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, l.Name)
	}

	if !l.NoColor {
		colorFor(level).Fprintf(l.writer, "%s %s\n", prefix, formatted)
	} else {
		fmt.Fprintf(l.writer, "%s %s\n", prefix, formatted)
	}

	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(Debug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(Info, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(Warn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(Error, msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.log(Fatal, msg, args...) }

// Named returns a child logger sharing the writer but with a qualified name.
func (l *Logger) Named(name string) *Logger {
	n := *l
	if l.Name != "" {
		n.Name = fmt.Sprintf("%s/%s", l.Name, name)
	} else {
		n.Name = name
	}
	return &n
}

// Nop returns a Logger that discards everything, for tests and callers
// that don't want diagnostics.
func Nop() *Logger {
	return &Logger{Level: Fatal + 1, writer: io.Discard}
}
