// Package catalog holds the card and set records shared by the OCTGN parser,
// the Hall of Beorn client, and the reconciliation core.
//
// Records are plain values. Code that receives a catalog snapshot treats it as
// read-only for the duration of a pass.
package catalog

import (
	"encoding/json"
	"strings"
)

// Category tags the game a set belongs to.
type Category string

const (
	CategoryLOTR         Category = "lotr"
	CategoryArkhamHorror Category = "arkham-horror"
	CategoryUnknown      Category = "unknown"
)

// Known OCTGN game identifiers.
const (
	GameIDLOTR         = "a21af4e8-be4b-4cda-a6b6-534f9717391f"
	GameIDArkhamHorror = "a6d114c7-2e2a-4896-ad8c-0330605c90bf"
)

// CategoryForGame maps an OCTGN game id to its category.
func CategoryForGame(gameID string) Category {
	switch strings.ToLower(strings.TrimSpace(gameID)) {
	case GameIDLOTR:
		return CategoryLOTR
	case GameIDArkhamHorror:
		return CategoryArkhamHorror
	default:
		return CategoryUnknown
	}
}

// Card is one entry of a local set. AlternateName is only meaningful when
// HasAlternate is true; it may equal Name for a double-faced card whose faces
// share a title.
type Card struct {
	ID            string
	Name          string
	AlternateName string
	HasAlternate  bool
}

// SelfReferentialBack reports whether the card's back face carries the same
// name as its front.
func (c Card) SelfReferentialBack() bool {
	return c.HasAlternate && c.AlternateName == c.Name
}

// Set is a local OCTGN set. Cards keep document order and have unique ids.
type Set struct {
	ID       string
	Name     string
	GameID   string
	Category Category
	Cards    []Card
}

// RemoteCard is a card as published by the remote catalog. Title is the only
// lookup key. Attributes holds the raw remote document untouched.
type RemoteCard struct {
	Title      string
	FrontImage string
	BackImage  string
	SetName    string
	Attributes json.RawMessage
}

// RemoteSet summarizes a set in the remote catalog.
type RemoteSet struct {
	Name     string
	Category string
}

// Download is the image plan for one local card. BackURL is empty when the
// card has a single face.
type Download struct {
	ID       string `json:"id"`
	FrontURL string `json:"front_url"`
	BackURL  string `json:"back_url,omitempty"`
}

// HasBack reports whether a back image should be fetched.
func (d Download) HasBack() bool {
	return d.BackURL != ""
}
