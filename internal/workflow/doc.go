// Package workflow wires configuration, the ledger, and the external
// collaborators into the four pipeline stages.
//
// The Manager owns one ledger handle, one embedding model pool, and one
// metrics recorder for the life of a command. Each stage method runs the
// local preflight checks its default collaborator needs, executes one
// batch, publishes metrics, and returns the batch report. RunPipeline
// chains ingest, transcription, embedding, and scoring; a stage whose keys
// all fail does not stop later stages, since each stage only consumes
// what earlier runs committed.
package workflow
