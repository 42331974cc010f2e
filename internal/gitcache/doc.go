// Package gitcache keeps a local checkout of the OCTGN set repository up to
// date.
//
// Sync takes a file lock next to the checkout so concurrent octpack runs do
// not race, then tries a cheap fetch-and-reset. Any failure along that path
// (missing checkout, changed remote, corrupt working tree) falls back to
// removing the directory and cloning afresh. Git is driven through an
// Executor so tests can stub it.
package gitcache
