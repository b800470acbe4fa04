package persistence

import "persistgo/storage"

// Logger receives debug lines for every adapter request.
type Logger = storage.Logger

const (
	tagSQLAdapter   = "SQLAdapter"
	tagRawQuery     = "RawQuery"
	tagQuickAdapter = "QuickAdapter"
	tagPreferences  = "Preferences"

	logMsgResolve         = "resolving adapter"
	logMsgDefaultRecorded = "default database recorded"
	logMsgRegistryBuild   = "building quick adapter"
	logMsgRegistryClose   = "closing quick adapters"

	logAttrTag      = "tag"
	logAttrDatabase = "database"
	logAttrCount    = "count"
)

func logDebug(l Logger, msg string, args ...any) {
	if l == nil {
		return
	}
	// Logging must never fail adapter resolution.
	defer func() { _ = recover() }()
	l.Debug(msg, args...)
}
