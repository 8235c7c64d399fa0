// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store and internal/task. It also owns the
// embedded schema migrations and the connection helper used by the server.
package postgres
