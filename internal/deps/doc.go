// Package deps checks that the external binaries octpack shells out to are
// installed.
package deps
