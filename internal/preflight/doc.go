// Package preflight provides readiness checks for the external binaries,
// HTTP collaborators, and filesystem paths clipper depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before a stage batch starts. A
//     failing check aborts the batch as a setup error so no work key is
//     attempted against a missing tool or a full disk.
//   - The CLI "clipper status" command calls RunAll plus CheckEndpoints to
//     display collaborator health.
package preflight
