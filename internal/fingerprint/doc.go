// Package fingerprint computes content identities for fetched media.
//
// A fingerprint is the lowercase hex SHA-256 digest of a file's full byte
// content. It ignores filename, modification time, and the locator the file
// came from, which makes it the sole dedup key for ingestion. Files are
// streamed in fixed 64 KiB chunks so memory use is constant.
//
// This package has no clipper-specific dependencies.
package fingerprint
