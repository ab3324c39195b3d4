// Package schema evolves the persisted tables to the shape the current
// entity definitions expect.
//
// Migrations are an ordered list. Each runs in its own transaction and is
// recorded in schema_migrations, so a second run applies nothing. Column
// additions still inspect the live table first because databases written by
// earlier versions of the tracker have no version table at all.
//
// Changes are additive only: columns are never dropped or renamed.
package schema
