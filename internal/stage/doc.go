// Package stage runs the claim-or-skip loop shared by every pipeline stage.
//
// A stage is described by a Spec: the work keys, an IsDone probe against the
// ledger, the Work call that delegates to an external collaborator, and a
// Commit that writes the result. Run drives those callbacks on a bounded
// worker pool where each worker owns a ledger session for its lifetime.
//
// Per key the state machine is
//
//	Pending -> Skipped (IsDone)
//	Pending -> Computing -> Committed | Superseded | Discarded | Failed
//
// Superseded means Commit lost a uniqueness race (ledger.ErrDuplicate) and
// counts as done. Discarded means Commit chose not to store the result
// (ErrNotStored). Failed keys are logged and left pending for the next run;
// there is no in-process retry. Work panics and per-call timeouts are
// converted to Failed so a single bad key never stops the batch.
package stage
