// Command clipper ingests media, transcribes it, embeds transcript
// segments, and records contradicting segment pairs in a local ledger.
//
// Every stage command is safe to rerun: work already recorded in the ledger
// is skipped. Per-item failures are reported and leave the exit status at
// zero; configuration, ledger, and preflight problems exit non-zero.
package main
