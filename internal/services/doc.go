// Package services defines shared error markers consumed by the octpack
// integrations (git cache, Hall of Beorn client, image downloads, packaging).
//
// Wrap tags a failure with a marker and the stage/operation that produced it;
// ExitCode turns those markers into the CLI's process exit status.
package services
