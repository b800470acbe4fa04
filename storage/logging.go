package storage

// Logger is the structured logger used across persistgo. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	logMsgOpened      = "storage opened"
	logMsgOpenFailed  = "storage open failed"
	logMsgPrefsOpened = "preferences backend opened"

	logAttrDialect = "dialect"
	logAttrDriver  = "driver"
	logAttrName    = "name"
	logAttrBackend = "backend"
	logAttrError   = "error"
)

// logDebug writes through l when set. A panicking logger never fails the caller.
func logDebug(l Logger, msg string, args ...any) {
	if l == nil {
		return
	}
	defer func() { _ = recover() }()
	l.Debug(msg, args...)
}

func logWarn(l Logger, msg string, args ...any) {
	if l == nil {
		return
	}
	defer func() { _ = recover() }()
	l.Warn(msg, args...)
}
