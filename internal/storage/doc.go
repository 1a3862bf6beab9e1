// Package storage provides the durable key-value stores the session snapshot is kept in:
// an in-memory map for tests and ephemeral runs, and a directory of files. The MongoDB
// backend lives in the mongostore subpackage.
package storage
