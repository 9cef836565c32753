package tracelistener

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/virinco/watsclient/internal/rollinglog"
)

// LogItem is a prebuilt record carrying nested detail lines and an optional
// error. It renders as one header line followed by indented sub-lines.
type LogItem struct {
	// Time defaults to the moment the item is written.
	Time time.Time
	// Category overrides the category passed to the listener.
	Category string
	Message  string
	Info     []string
	Errors   []string
	Err      error
}

// Field is a key/value pair attached to a LogMessage.
type Field struct {
	Key   string
	Value any
}

// LogMessage is a generic structured message, typically produced by another
// logging framework.
type LogMessage struct {
	Time     time.Time
	Level    Level
	Category string
	Source   string
	Message  string
	Fields   []Field
}

// exceptionRecord is the JSON form of an error chain.
type exceptionRecord struct {
	Type    string             `json:"type"`
	Message string             `json:"message"`
	Cause   *exceptionRecord   `json:"cause,omitempty"`
	Causes  []*exceptionRecord `json:"causes,omitempty"`
}

func newExceptionRecord(err error) *exceptionRecord {
	if err == nil {
		return nil
	}
	rec := &exceptionRecord{Type: fmt.Sprintf("%T", err), Message: err.Error()}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if r := newExceptionRecord(e); r != nil {
				rec.Causes = append(rec.Causes, r)
			}
		}
	default:
		rec.Cause = newExceptionRecord(errors.Unwrap(err))
	}
	return rec
}

// formatException renders err as indented JSON.
func formatException(err error) string {
	b, jerr := json.MarshalIndent(newExceptionRecord(err), "", "  ")
	if jerr != nil {
		return strconv.Quote(err.Error())
	}
	return string(b)
}

func (it *LogItem) render(now time.Time, category string) string {
	if !it.Time.IsZero() {
		now = it.Time
	}
	if it.Category != "" {
		category = it.Category
	}
	var b strings.Builder
	b.WriteString(rollinglog.FormatEntry(now, category, it.Message))
	b.WriteByte('\n')
	for _, line := range it.Info {
		b.WriteString("\tinfo: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, line := range it.Errors {
		b.WriteString("\terror: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if it.Err != nil {
		b.WriteString("\texception: ")
		b.WriteString(formatException(it.Err))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *LogMessage) render(now time.Time, category string) string {
	if !m.Time.IsZero() {
		now = m.Time
	}
	switch {
	case m.Category != "":
		category = m.Category
	case category == "":
		category = m.Level.Category()
	}
	var b strings.Builder
	if m.Source != "" {
		b.WriteString("[")
		b.WriteString(m.Source)
		b.WriteString("] ")
	}
	b.WriteString(m.Message)
	for _, f := range m.Fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	return rollinglog.FormatEntry(now, category, b.String()) + "\n"
}

func formatValue(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\n\";=") {
		return strconv.Quote(s)
	}
	return s
}

// render turns any payload into record text. Only plain values written
// without a line terminator come back unterminated.
func render(v any, category string, now time.Time, line bool) string {
	switch x := v.(type) {
	case *LogItem:
		if x != nil {
			return x.render(now, category)
		}
	case LogItem:
		return x.render(now, category)
	case *LogMessage:
		if x != nil {
			return x.render(now, category)
		}
	case LogMessage:
		return x.render(now, category)
	case error:
		return rollinglog.FormatEntry(now, category, "") + "\n" + formatException(x) + "\n"
	}
	s := rollinglog.FormatEntry(now, category, fmt.Sprint(v))
	if line {
		s += "\n"
	}
	return s
}
