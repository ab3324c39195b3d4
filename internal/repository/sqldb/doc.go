// Package sqldb implements the service repositories on database/sql for
// both SQLite and PostgreSQL. Queries are written once with `?`
// placeholders and rebound for the connected dialect.
package sqldb
