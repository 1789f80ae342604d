// Package runstore persists a history of ensemble generation runs in SQLite.
//
// Each completed Generate call is recorded with its parameters, duration, and
// per-stage mean standard deviation so past runs can be compared from the
// CLI. The database is a record of results, not coordination state; deleting
// it only loses history.
//
// Schema changes bump the version in store.go; the store refuses to open a
// database with a different version.
package runstore
