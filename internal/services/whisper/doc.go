// Package whisper wraps the whisper.cpp command line transcriber.
//
// The client runs the configured binary with JSON output enabled, writes the
// transcript next to other transcripts as <item>.json, and parses timed
// segments from either the segments[{start,end,text}] layout or whisper.cpp's
// native transcription[{offsets}] layout. Command execution is injectable so
// tests never spawn the real binary.
package whisper
