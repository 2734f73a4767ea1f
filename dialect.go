package tablift

// Dialect represents supported target SQL dialects
// This type is shared across all packages
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectBigQuery Dialect = "bigquery"
)

// ParseDialect converts a configuration string into a Dialect.
// An empty string selects the default (postgres).
func ParseDialect(name string) (Dialect, bool) {
	switch name {
	case "", "postgres", "postgresql":
		return DialectPostgres, true
	case "mysql", "mariadb":
		return DialectMySQL, true
	case "sqlite", "sqlite3":
		return DialectSQLite, true
	case "bigquery":
		return DialectBigQuery, true
	default:
		return "", false
	}
}
