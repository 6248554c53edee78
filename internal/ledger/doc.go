// Package ledger records each photo's lifecycle in a local SQLite database.
// The ledger is observational: the stores themselves are the source of truth,
// and a ledger write failure never fails the operation that triggered it.
package ledger
