// Package logging provides the structured, per-stage logger used across
// the registries, pipeline, and extractors. Generalized from the
// teacher's prefixed *log.Logger wrapper into a per-job logger that
// tags every line with its component prefix and, when set, a job
// correlation id.
package logging

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	tagInfo  = color.New(color.FgCyan)
	tagWarn  = color.New(color.FgYellow, color.Bold)
	tagError = color.New(color.FgRed, color.Bold)
	tagDebug = color.New(color.FgWhite)
)

// Logger is a prefixed logger carrying an optional job correlation id.
// A zero-value job id is omitted from the line.
type Logger struct {
	prefix string
	jobID  string
	logger *log.Logger
	color  bool
}

// New creates a logger tagged with prefix (typically a package or
// component name, e.g. "pipeline", "registry").
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(os.Stdout, "", log.LstdFlags),
		color:  color.NoColor == false,
	}
}

// WithJob returns a copy of l tagged with jobID, mirroring the teacher's
// "[Job %s]" prefix convention. The façade's extraction calls log
// through such a copy at entry, on a cache hit and at completion, and
// the pipeline logs embedding and post-processor failures through it.
func (l *Logger) WithJob(jobID string) *Logger {
	cp := *l
	cp.jobID = jobID
	return &cp
}

func (l *Logger) header() string {
	if l.jobID != "" {
		return fmt.Sprintf("[%s] [Job %s]", l.prefix, l.jobID)
	}
	return fmt.Sprintf("[%s]", l.prefix)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(tagInfo, "INFO", msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(tagWarn, "WARN", msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(tagError, "ERROR", msg, keysAndValues...)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(tagDebug, "DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(c *color.Color, level, msg string, keysAndValues ...interface{}) {
	kvStr := ""
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			kvStr += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
		}
	}
	levelTag := level
	if l.color {
		levelTag = c.Sprint(level)
	}
	l.logger.Printf("%s [%s] %s%s", l.header(), levelTag, msg, kvStr)
}
