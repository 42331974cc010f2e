// Package pipeline wires the collaborators together for the two things the
// CLI does: list the OCTGN sets that exist in Hall of Beorn, and pack one
// set's card images into an .o8c archive.
//
// Listing syncs the set repository, parses every set.xml, fetches the remote
// set list, and correlates the two by name. Packing fetches the remote cards
// for the set, resolves every local card to image URLs, downloads them into a
// scratch tree under the work directory, and zips that tree into the output
// directory. Approximate matches are logged as warnings, one per substituted
// face, so an operator can audit them.
package pipeline
