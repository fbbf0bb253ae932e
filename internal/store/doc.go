// Package store defines the persistence interfaces for the image
// generation service and the transaction helper used to compose multiple
// store operations atomically. Implementations live in
// internal/platform/postgres.
package store
