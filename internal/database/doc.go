// Package database opens the relational store and hides the few places where
// SQLite and PostgreSQL differ: placeholder syntax, column introspection,
// DDL type names, and constraint-violation detection.
//
// Every caller receives a *DB built from config.DatabaseConfig; there is no
// package-level connection or path.
package database
