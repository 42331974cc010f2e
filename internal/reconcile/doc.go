// Package reconcile joins the local OCTGN catalog with the remote Hall of
// Beorn catalog.
//
// The two catalogs share no identifier. Cards are matched by title, exact
// first, then by smallest unit-cost edit distance. Whole sets are correlated
// by name under a distance threshold, and the remote set order decides the
// order of the local sets that survive.
//
// Everything here works on in-memory snapshots and never performs I/O or
// logging. Approximate matches are reported back to the caller as
// Substitution values so the caller decides how to surface them.
package reconcile
