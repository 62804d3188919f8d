// Package storage persists the operator audit log: every show launch,
// toggle and reload issued from a command transport.
//
// Backends:
//   - "file": JSON Lines, one entry per line
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
package storage
