// Package sqlite contains the SQLite repository for estimation sessions.
//
// All database read/write operations for sessions, readings, and reference
// device samples belong here rather than in the estimation packages. This
// keeps the analyzer and pipeline free of SQL noise and makes it easy to
// run them with no database at all (the pipeline's store sink is optional).
//
// Schema lives in db/migrations and is applied with golang-migrate via
// Store.MigrateUp.
package sqlite
