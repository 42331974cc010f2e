// Package octgn reads OCTGN set definitions (set.xml) from a checked-out set
// repository.
//
// ParseSet decodes a single document; LoadSets walks a Sets directory. Both
// reject documents missing the attributes octpack relies on with a
// *ParseError naming the offending field.
package octgn
