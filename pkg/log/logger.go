package log

import (
	"io"
	"log/slog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// SetupSlog installs a JSON slog default logger on w for callers that log
// through log/slog rather than this package's Logger. Unknown level names
// fall back to info.
func SetupSlog(w io.Writer, level string) {
	lvl, _ := ParseLevel(level)
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(lvl),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	slog.SetDefault(slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))))
}

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
