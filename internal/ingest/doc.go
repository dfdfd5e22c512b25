// Package ingest resolves source locators into deduplicated content objects.
//
// For every locator not yet bound in the ledger the controller fetches the
// media through a Fetcher, fingerprints the bytes, and records the result.
// Identity is decided by the ledger's uniqueness constraints, not by arrival
// order: the first committed content object for a fingerprint owns its file,
// and any later worker that fetched the same bytes deletes its own copy and
// binds its locator to the winner.
//
// A fetched file is never left on disk unless a content object claims it,
// whatever path the worker exits through.
package ingest
