package reconcile

import "errors"

// ErrEmptyCandidateSet is returned when a match is requested against an empty
// candidate list. For card resolution this means the remote set has no cards,
// which aborts the run.
var ErrEmptyCandidateSet = errors.New("reconcile: empty candidate set")
