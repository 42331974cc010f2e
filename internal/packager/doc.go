// Package packager zips a downloaded image tree into an OCTGN image pack
// (.o8c). Archive entries are relative to the tree root, written in lexical
// order with Deflate compression so identical inputs produce identical
// archives.
package packager
