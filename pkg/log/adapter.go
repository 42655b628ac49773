package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerLogger routes Badger's internal logging through logrus.
// Badger reports compaction and value-log housekeeping at Info; a visited set
// lives for one run, so that chatter is demoted to Debug.
type BadgerLogger struct {
	entry *logrus.Entry
}

// NewBadgerLogger creates a Badger logger writing to entry
func NewBadgerLogger(entry *logrus.Entry) *BadgerLogger {
	return &BadgerLogger{entry: entry}
}

// Errorf logs an error message
func (l *BadgerLogger) Errorf(f string, v ...interface{}) { l.entry.Errorf(trimNewline(f), v...) }

// Warningf logs a warning message
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warnf(trimNewline(f), v...) }

// Infof logs at Debug
func (l *BadgerLogger) Infof(f string, v ...interface{}) { l.entry.Debugf(trimNewline(f), v...) }

// Debugf logs a debug message
func (l *BadgerLogger) Debugf(f string, v ...interface{}) { l.entry.Debugf(trimNewline(f), v...) }

// Badger format strings end in "\n"; logrus adds its own
func trimNewline(f string) string {
	return strings.TrimSuffix(f, "\n")
}
