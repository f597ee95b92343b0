package eventlog

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/inter"
)

// Logger writes every notification as one structured log line.
type Logger struct {
	log   logrus.FieldLogger
	level logrus.Level
}

// NewLogger logs notifications at info level.
func NewLogger(log logrus.FieldLogger) *Logger {
	return &Logger{log: log.WithField("module", "events"), level: logrus.InfoLevel}
}

// WithLevel returns a copy logging at level.
func (l *Logger) WithLevel(level logrus.Level) *Logger {
	cp := *l
	cp.level = level
	return &cp
}

// Publish implements ledger.Sink.
func (l *Logger) Publish(ev inter.Event) {
	entry := l.log.WithFields(Fields(ev))
	msg := "Ledger event " + ev.EventName()
	switch l.level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
}

// Fields flattens a notification into log fields keyed by its JSON names.
func Fields(ev inter.Event) logrus.Fields {
	fields := logrus.Fields{"event": ev.EventName()}
	payload, err := encode(ev)
	if err != nil {
		return fields
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var flat map[string]interface{}
	if err := dec.Decode(&flat); err != nil {
		return fields
	}
	for k, v := range flat {
		fields[k] = v
	}
	return fields
}
