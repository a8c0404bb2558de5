// Package storage persists dropbot's two tables: the subscription list
// (who tracks which game) and the notified-reward ledger (which reward ids
// were already announced). Both live in one sqlite database file.
package storage
