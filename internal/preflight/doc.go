// Package preflight provides readiness checks for the directories, binaries,
// and remote services octpack depends on.
//
// These checks run in two contexts:
//   - "octpack pack" calls RunAll before touching the network and aborts
//     when a required check fails.
//   - "octpack status" renders every check, including the informational
//     repository and catalog cache probes, as a table.
package preflight
