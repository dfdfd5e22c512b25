// Package scoring detects contradictions between transcript segments.
//
// Every ordered pair (a < b) of segment ids is a work key. A Scorer returns
// a confidence for the pair and the controller stores it only when it
// exceeds the configured threshold, so pairs that scored low are scored
// again on later runs. LexicalScorer provides an offline scorer that flags
// pairs where exactly one side is negated.
package scoring
