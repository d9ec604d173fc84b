package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or SQLite URI, e.g. "warehouse.db" or
	// "file:warehouse.db?_pragma=busy_timeout(5000)".
	DSN string

	// Table is the target table name. "main.tracks" is accepted and passed
	// through.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}
