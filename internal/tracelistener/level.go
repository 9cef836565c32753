package tracelistener

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a traced event. Lower values are more severe.
// A listener configured at level L records events with level <= L.
type Level int

const (
	// Off disables the listener.
	Off Level = iota
	Critical
	Error
	Warning
	Information
	Verbose
)

var levelNames = map[Level]string{
	Off:         "Off",
	Critical:    "Critical",
	Error:       "Error",
	Warning:     "Warning",
	Information: "Information",
	Verbose:     "Verbose",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Category is the upper-case tag used in the category column for events of
// this level.
func (l Level) Category() string {
	switch l {
	case Critical:
		return "CRITICAL"
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Information:
		return "INFO"
	case Verbose:
		return "VERBOSE"
	}
	return ""
}

// ParseLevel accepts the level names case-insensitively, plus the common
// aliases "all", "debug", "info", "warn" and "none".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return Off, nil
	case "critical", "fatal":
		return Critical, nil
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	case "information", "info":
		return Information, nil
	case "verbose", "debug", "all", "trace":
		return Verbose, nil
	}
	return Off, fmt.Errorf("unknown logging level %q", s)
}

// fromZerolog maps zerolog levels onto listener levels.
func fromZerolog(l zerolog.Level) Level {
	switch l {
	case zerolog.PanicLevel, zerolog.FatalLevel:
		return Critical
	case zerolog.ErrorLevel:
		return Error
	case zerolog.WarnLevel:
		return Warning
	case zerolog.InfoLevel, zerolog.NoLevel:
		return Information
	default:
		return Verbose
	}
}
