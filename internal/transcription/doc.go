// Package transcription turns ingested media into timed transcript segments.
//
// The work key is the content object's item id. An item is done once any
// segment exists for it; a run commits the full segment set for an item in
// one transaction, so a crashed or failed worker never leaves a partial
// transcript behind.
package transcription
