// Package postgres implements the store interfaces on PostgreSQL via the
// pgx stdlib driver. All implementations accept a store.DBTX so the same
// code runs against a connection pool or an open transaction.
package postgres
