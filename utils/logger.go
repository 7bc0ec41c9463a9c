/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

var (
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	consoleOutput    io.Writer = os.Stdout
	consoleLogFormat           = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogEnabled             = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogPath                = EnvDefaultString("FILE_LOG_PATH", filepath.Join("logs", "unitwork.log"))
	fileLogMaxSizeMB           = 100
	fileLogMaxBackups          = 7
	fileLogMaxAgeDays          = 30
	fileWriter       *lumberjack.Logger
	fileWriterOnce   sync.Once
)

// ConfigureFileLog enables a size-rotated log file shared by every logger
// created afterwards.
func ConfigureFileLog(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	if path != "" {
		fileLogPath = path
	}
	if maxSizeMB > 0 {
		fileLogMaxSizeMB = maxSizeMB
	}
	if maxBackups >= 0 {
		fileLogMaxBackups = maxBackups
	}
	if maxAgeDays >= 0 {
		fileLogMaxAgeDays = maxAgeDays
	}
	fileLogEnabled = true
}

func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// ConfigureConsoleOutput redirects console output of every registered logger.
func ConfigureConsoleOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	loggerRegistryMu.Lock()
	consoleOutput = w
	for _, lg := range loggerRegistry {
		lg.SetOutput(w)
	}
	loggerRegistryMu.Unlock()
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetLogger returns the named logger, creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return lg
	}
	return NewLogger(name)
}

func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// ConfigureLogLevel sets the level of every registered logger and of loggers
// created later.
func ConfigureLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	loggerRegistryMu.Lock()
	defaultLevel = lvl
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.Unlock()
	logrus.SetLevel(lvl)
}

type fileWriterHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileWriterHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

func rotatingFile() *lumberjack.Logger {
	fileWriterOnce.Do(func() {
		fileWriter = &lumberjack.Logger{
			Filename:   fileLogPath,
			MaxSize:    fileLogMaxSizeMB,
			MaxBackups: fileLogMaxBackups,
			MaxAge:     fileLogMaxAgeDays,
			LocalTime:  true,
		}
	})
	return fileWriter
}

// CloseFileLog flushes and closes the rotating log file, if one was opened.
func CloseFileLog() error {
	if fileWriter == nil {
		return nil
	}
	return fileWriter.Close()
}

func NewLogger(name string) *logrus.Logger {
	l := logrus.New()
	loggerRegistryMu.RLock()
	l.SetOutput(consoleOutput)
	l.SetLevel(defaultLevel)
	loggerRegistryMu.RUnlock()
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: defaultTimestampFormat,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10, CallerWidth: 25})
	}
	if fileLogEnabled {
		l.AddHook(&fileWriterHook{
			writer:    rotatingFile(),
			formatter: &Log4jColorFormatter{LoggerName: name, NameWidth: 10, CallerWidth: 25, DisableColors: true},
		})
	}
	RegisterLogger(name, l)
	return l
}

// Log4jColorFormatter renders entries as
// "ts LEVEL pid - [main] name caller : message k=v".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	DisableColors   bool
	NameWidth       int
	CallerWidth     int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	paint := func(c *color.Color, s string) string {
		if f.DisableColors {
			return s
		}
		return c.Sprint(s)
	}

	lvl := padLeftRunes(strings.ToUpper(entry.Level.String()), 7)
	name := padLeftRunes(limitRunes(f.LoggerName, f.NameWidth), f.NameWidth)

	caller := ""
	if entry.Caller != nil {
		fileLine := shortRelative(entry.Caller.File) + ":" + strconv.Itoa(entry.Caller.Line)
		if f.CallerWidth > 0 {
			fileLine = padLeftRunes(limitTail(fileLine, f.CallerWidth), f.CallerWidth)
		}
		caller = " " + paint(faint, fileLine)
	}

	var sb strings.Builder
	sb.WriteString(ts.Format(tsFormat))
	sb.WriteByte(' ')
	sb.WriteString(paint(levelColor(entry.Level), lvl))
	sb.WriteByte(' ')
	sb.WriteString(paint(magenta, fmt.Sprintf("%-6d", os.Getpid())))
	sb.WriteString(" - ")
	sb.WriteString(paint(magenta, "[main]"))
	sb.WriteByte(' ')
	sb.WriteString(paint(cyan, name))
	sb.WriteString(caller)
	sb.WriteString(" " + paint(faint, ":") + " ")
	sb.WriteString(entry.Message)
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" " + paint(faint, k+"=") + fmt.Sprint(entry.Data[k]))
		}
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

var (
	faint   = color.New(color.Faint)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgCyan)
)

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.DebugLevel:
		return color.New(color.FgBlue)
	default:
		return magenta
	}
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func limitTail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func padLeftRunes(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(r)) + s
}

func shortRelative(p string) string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return parts[0]
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
