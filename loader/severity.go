package loader

import (
	"strconv"

	"go.uber.org/zap"
)

// Severity is the level passed as the first argument of lib.log.
type Severity uint32

const (
	SeverityLog Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityLog:
		return "LOG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "LOG(" + strconv.FormatUint(uint64(s), 10) + ")"
	}
}

// Known reports whether s is one of the four defined levels.
func (s Severity) Known() bool {
	return s <= SeverityError
}

// LogSink receives decoded guest log messages.
type LogSink interface {
	Log(sev Severity, msg string)
}

// LogSinkFunc adapts a function to LogSink.
type LogSinkFunc func(sev Severity, msg string)

func (f LogSinkFunc) Log(sev Severity, msg string) { f(sev, msg) }

type zapSink struct {
	l *zap.Logger
}

// NewZapSink returns a sink that writes guest messages to l. LOG and INFO map
// to Info, WARN to Warn and ERROR to Error. Unknown levels are logged as LOG
// with the raw value attached.
func NewZapSink(l *zap.Logger) LogSink {
	return &zapSink{l: l}
}

func (s *zapSink) Log(sev Severity, msg string) {
	if !sev.Known() {
		s.l.Info(msg,
			zap.Stringer("severity", SeverityLog),
			zap.Uint32("severity_raw", uint32(sev)),
		)
		return
	}
	field := zap.Stringer("severity", sev)
	switch sev {
	case SeverityWarn:
		s.l.Warn(msg, field)
	case SeverityError:
		s.l.Error(msg, field)
	default:
		s.l.Info(msg, field)
	}
}
