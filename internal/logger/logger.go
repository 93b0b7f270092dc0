// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package logger provides the package-global log object used by all tools,
// along with the CLI flags that configure it.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const (
	LevelsFlag         = "log-level"
	LevelsHelp         = "Minimum log level to print."
	LevelsPlaceholder  = "(debug|info|warn|error)"
	FileFlag           = "log-file"
	FileFlagHelp       = "Path of a file to write the full log to."
	ColorFlag          = "log-color"
	ColorFlagHelp      = "Color setting for terminal output."
	ColorsPlaceholder  = "(always|auto|never)"
	defaultLogLevel    = logrus.InfoLevel
	defaultLogFileMode = 0o644
)

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

// Log is the global logger. It is initialized with defaults at load time so
// packages can log before Init is called.
var Log = newDefaultLogger()

type LogFlags struct {
	LogColor *string
	LogFile  *string
	LogLevel *string
}

func Levels() []string {
	return []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}
}

func Colors() []string {
	return []string{colorAlways, colorAuto, colorNever}
}

// Init configures the global logger from the CLI flags: stderr output with
// colored level prefixes, an optional plain-text log file, and the minimum
// level.
func Init(flags *LogFlags) error {
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&levelFormatter{})

	if flags.LogColor != nil && *flags.LogColor != "" {
		switch *flags.LogColor {
		case colorAlways:
			color.NoColor = false
		case colorNever:
			color.NoColor = true
		case colorAuto:
			// fatih/color already probed the terminal.
		default:
			return fmt.Errorf("invalid %s value (%s)", ColorFlag, *flags.LogColor)
		}
	}

	if flags.LogLevel != nil && *flags.LogLevel != "" {
		level, err := logrus.ParseLevel(*flags.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid %s value (%s):\n%w", LevelsFlag, *flags.LogLevel, err)
		}
		Log.SetLevel(level)
	}

	if flags.LogFile != nil && *flags.LogFile != "" {
		logFile, err := os.OpenFile(*flags.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultLogFileMode)
		if err != nil {
			return fmt.Errorf("failed to open log file (%s):\n%w", *flags.LogFile, err)
		}
		Log.AddHook(newFileHook(logFile))
	}

	return nil
}

// InitBestEffort initializes logging and downgrades any initialization
// failure to a warning so the tool can still run.
func InitBestEffort(flags *LogFlags) {
	err := Init(flags)
	if err != nil {
		Log.Warnf("Failed to initialize logger:\n%v", err)
	}
}

func newDefaultLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(defaultLogLevel)
	log.SetFormatter(&levelFormatter{})
	return log
}

// levelFormatter prints "[level] message" with the whole line colored for
// warnings and errors.
type levelFormatter struct{}

func (f *levelFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("[%s] %s\n", strings.ToLower(entry.Level.String()), entry.Message)

	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		line = color.RedString("%s", line)
	case logrus.WarnLevel:
		line = color.YellowString("%s", line)
	case logrus.DebugLevel, logrus.TraceLevel:
		line = color.HiBlackString("%s", line)
	}

	return []byte(line), nil
}

// fileHook mirrors every entry to a log file, without colors and with a
// timestamp.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func newFileHook(writer io.Writer) *fileHook {
	return &fileHook{
		writer: writer,
		formatter: &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		},
	}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.writer.Write(line)
	return err
}
