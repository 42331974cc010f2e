package testsupport

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"octpack/internal/catalog"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type xmlAlternate struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type xmlCard struct {
	ID        string        `xml:"id,attr"`
	Name      string        `xml:"name,attr"`
	Alternate *xmlAlternate `xml:"alternate,omitempty"`
}

type xmlSet struct {
	XMLName xml.Name  `xml:"set"`
	ID      string    `xml:"id,attr"`
	Name    string    `xml:"name,attr"`
	GameID  string    `xml:"gameId,attr"`
	Cards   []xmlCard `xml:"cards>card"`
}

// WriteSetXML writes set as <setsDir>/<set.ID>/set.xml. An empty GameID
// defaults to the LOTR game.
func WriteSetXML(t testing.TB, setsDir string, set catalog.Set) string {
	t.Helper()

	doc := xmlSet{ID: set.ID, Name: set.Name, GameID: set.GameID}
	if doc.GameID == "" {
		doc.GameID = catalog.GameIDLOTR
	}
	for _, card := range set.Cards {
		xc := xmlCard{ID: card.ID, Name: card.Name}
		if card.HasAlternate {
			xc.Alternate = &xmlAlternate{Name: card.AlternateName, Type: "B"}
		}
		doc.Cards = append(doc.Cards, xc)
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal set xml: %v", err)
	}

	path := filepath.Join(setsDir, set.ID, "set.xml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, append([]byte(xml.Header), data...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
