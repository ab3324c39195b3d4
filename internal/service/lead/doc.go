// Package lead implements lead management: creation with reference codes,
// filtered listing, partial updates, scheduling, analytics, and bulk import.
//
// The service depends only on the Repository interface defined here.
// The SQL implementation lives in repository/sqldb/.
package lead
