// Package imagefetch downloads card images into the OCTGN image pack layout:
//
//	<root>/<gameID>/Sets/<setID>/Cards/<cardID>.jpg
//	<root>/<gameID>/Sets/<setID>/Cards/<cardID>.B.jpg
//
// Downloads run with bounded concurrency. Transient failures (network errors,
// 5xx, 429) are retried with exponential backoff; files are written through a
// temp file so an interrupted run never leaves truncated images behind.
package imagefetch
