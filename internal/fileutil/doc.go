// Package fileutil holds small filesystem helpers for fetched media cleanup
// and files other tools read while clipper may be rewriting them.
package fileutil
