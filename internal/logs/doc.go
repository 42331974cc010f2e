// Package logs reads the octpack run log for `octpack logs`.
//
// It returns the last N lines with bounded memory, follows the file as new
// runs append to it, and filters lines by run or set id in both the console
// and JSON formats.
package logs
