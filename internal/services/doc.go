// Package services defines shared utilities consumed by the pipeline stages
// and the adapters for external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, run identifiers, and work keys
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     consistently (per-key failure vs setup error).
//
// Collaborator adapters live in subpackages (ytdlp, whisper, embedapi, nli).
package services
