// Command octpack builds OCTGN image packs for The Lord of the Rings: The
// Card Game from Hall of Beorn card scans.
//
// Commands:
//
//	octpack sets               list packable sets in release order
//	octpack pack --set <id>    build the .o8c archive for one set
//	octpack pack --all         build archives for every packable set
//	octpack status             run the readiness checks
//	octpack cache list|clear   inspect the catalog response cache
//	octpack config init|validate
package main
