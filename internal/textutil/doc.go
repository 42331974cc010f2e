// Package textutil provides filename helpers shared by the packager and the
// image fetcher.
//
// FoldAccents strips combining marks so "Khazad-dûm" becomes "Khazad-dum";
// SanitizeFileName removes characters that are unsafe in file names;
// ArchiveStem combines both and joins words with dashes.
package textutil
