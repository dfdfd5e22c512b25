// Package ledger persists every pipeline entity in a single SQLite file.
//
// The ledger holds content objects (deduplicated by fingerprint), source
// locator bindings, transcript segments, embeddings, contradiction scores,
// and a monotonic schema version. It runs in WAL mode so readers never block
// on the single in-progress writer, and write transactions begin IMMEDIATE
// so competing writers serialize on the busy timeout instead of failing
// mid-transaction.
//
// Concurrent workers each take their own Session (a dedicated connection).
// Cross-worker conflicts are resolved by the tables' uniqueness constraints:
// inserts that lose a race return ErrDuplicate, which callers treat as
// "someone else already did this" rather than a failure.
package ledger
