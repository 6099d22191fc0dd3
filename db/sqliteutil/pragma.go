package sqliteutil

import (
	"fmt"
	"strings"
)

// Pragmas describes connection-level SQLite settings carried in the DSN.
type Pragmas struct {
	WAL           bool
	BusyTimeoutMS int
	ForeignKeys   bool
}

// DefaultPragmas is used for file-backed stores opened by the CLI.
var DefaultPragmas = Pragmas{WAL: true, BusyTimeoutMS: 5000}

// Apply appends the configured pragmas to dsn.
func (p Pragmas) Apply(dsn string) string {
	dsn = EnsurePragmas(dsn, p.WAL, p.BusyTimeoutMS)
	if p.ForeignKeys && !isMemory(dsn) && !strings.Contains(strings.ToLower(dsn), "_pragma=foreign_keys") {
		dsn = addPragma(dsn, "foreign_keys(1)")
	}
	return dsn
}

// EnsurePragmas appends SQLite pragmas to the DSN when missing.
// It is a no-op for in-memory databases.
func EnsurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	if dsn == "" || isMemory(dsn) {
		return dsn
	}
	lower := strings.ToLower(dsn)
	if wal && !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = addPragma(dsn, "journal_mode(WAL)")
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = addPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn
}

func isMemory(dsn string) bool {
	lower := strings.ToLower(dsn)
	return dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") || strings.Contains(lower, "mode=memory")
}

func addPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
