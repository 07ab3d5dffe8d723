// Package ledger reconciles customer accounts.
//
// It turns invoices and payments into signed transactions, computes period
// statements with an opening balance and running balances, and derives the
// settlement state of an invoice after a payment. All amounts use decimal
// arithmetic so closing = opening + charges - payments holds exactly.
//
// Every function here is pure: inputs are in-memory snapshots supplied by the
// caller and nothing is read from or written to storage. The functions are
// safe for concurrent use.
package ledger
