package reconcile

import "octpack/internal/catalog"

// Index maps remote titles to remote cards. Titles compare byte for byte.
type Index struct {
	byTitle map[string]catalog.RemoteCard
}

// NewIndex builds an index over cards. When titles repeat, the card seen last
// wins.
func NewIndex(cards []catalog.RemoteCard) *Index {
	byTitle := make(map[string]catalog.RemoteCard, len(cards))
	for _, card := range cards {
		byTitle[card.Title] = card
	}
	return &Index{byTitle: byTitle}
}

// Lookup returns the card titled exactly title.
func (i *Index) Lookup(title string) (catalog.RemoteCard, bool) {
	if i == nil {
		return catalog.RemoteCard{}, false
	}
	card, ok := i.byTitle[title]
	return card, ok
}

// Len reports the number of distinct titles.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byTitle)
}
