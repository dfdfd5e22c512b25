// Package embedding stores one vector per transcript segment.
//
// The work key is the segment id. Providers are obtained from a Pool keyed
// by model name so a loaded model handle is created lazily, shared by every
// run in the process, and released explicitly at shutdown.
package embedding
