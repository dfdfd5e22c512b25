// Package language normalizes the transcription language setting into the
// code form whisper.cpp accepts.
//
// Operators may write ISO 639-1 or 639-2 codes (including the bibliographic
// variants such as "ger"), English language names, or "auto".
package language
