// Package update drives the optimistic-concurrency update protocol against
// the external inventory store.
//
// ARCHITECTURE:
//
// One batch run owns exactly one Session. The Executor opens it, walks the
// items in ascending identifier order, and closes it on every exit path.
// Nothing runs in parallel: one item, one in-flight request at a time.
//
// Per-item sequence:
//  1. Query: send MaterialQueryRq, capture the LastUpdated concurrency token.
//     Unknown identifiers end here as NOT_FOUND.
//  2. Update: send MaterialModRq carrying the captured token and the delta.
//     A token mismatch ends as CONFLICT; another writer changed the record
//     between query and update.
//  3. Record a Success or Failure outcome and continue with the next item.
//
// Fatal preconditions (empty batch, session rejection) abort before any item
// is touched. Per-item failures never cross item boundaries.
//
// No failure is retried within a run. Compare-and-swap semantics make blind
// retries unsafe; re-querying is left to a later invocation.
package update
