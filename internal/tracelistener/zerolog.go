package tracelistener

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// ZerologWriter feeds zerolog events into a Listener, so a host process that
// logs with zerolog also writes its events to the rolling log:
//
//	logger := zerolog.New(tracelistener.NewZerologWriter(l))
//
// Each JSON event becomes a LogMessage; the level, time, message, component
// and error fields are mapped, the rest are kept as fields sorted by key.
type ZerologWriter struct {
	l *Listener
}

// NewZerologWriter wraps l.
func NewZerologWriter(l *Listener) *ZerologWriter {
	return &ZerologWriter{l: l}
}

// Write handles events that arrive without level information.
func (w *ZerologWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter. It always reports success so a
// failing log never disturbs the caller.
func (w *ZerologWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		w.l.TraceEvent(fromZerolog(level), "", string(p))
		return len(p), nil
	}

	if level == zerolog.NoLevel {
		if s, ok := event[zerolog.LevelFieldName].(string); ok {
			if parsed, err := zerolog.ParseLevel(s); err == nil {
				level = parsed
			}
		}
	}
	msg := LogMessage{Level: fromZerolog(level)}
	if s, ok := event[zerolog.MessageFieldName].(string); ok {
		msg.Message = s
	}
	if s, ok := event["component"].(string); ok {
		msg.Source = s
	}
	if s, ok := event[zerolog.TimestampFieldName].(string); ok {
		if t, err := time.Parse(zerolog.TimeFieldFormat, s); err == nil {
			msg.Time = t
		}
	}

	keys := make([]string, 0, len(event))
	for k := range event {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName, "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg.Fields = append(msg.Fields, Field{Key: k, Value: event[k]})
	}

	w.l.TraceEvent(msg.Level, "", &msg)
	return len(p), nil
}
