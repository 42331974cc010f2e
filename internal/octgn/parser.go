package octgn

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"octpack/internal/catalog"
)

// SetFileName is the definition file inside each set directory.
const SetFileName = "set.xml"

// ParseError reports a set document that cannot be used.
type ParseError struct {
	Path  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("octgn: parse")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissing   = errors.New("missing attribute")
	errInvalidID = errors.New("not a GUID")
	errDuplicate = errors.New("duplicate card id")
)

type setDocument struct {
	XMLName xml.Name       `xml:"set"`
	ID      string         `xml:"id,attr"`
	Name    string         `xml:"name,attr"`
	GameID  string         `xml:"gameId,attr"`
	Cards   []cardDocument `xml:"cards>card"`
}

type cardDocument struct {
	ID         string              `xml:"id,attr"`
	Name       string              `xml:"name,attr"`
	Alternates []alternateDocument `xml:"alternate"`
}

type alternateDocument struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// ParseSet decodes one set.xml document.
func ParseSet(r io.Reader) (catalog.Set, error) {
	var doc setDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return catalog.Set{}, &ParseError{Err: err}
	}

	if err := requireGUID("set.id", doc.ID); err != nil {
		return catalog.Set{}, err
	}
	if strings.TrimSpace(doc.Name) == "" {
		return catalog.Set{}, &ParseError{Field: "set.name", Err: errMissing}
	}
	if err := requireGUID("set.gameId", doc.GameID); err != nil {
		return catalog.Set{}, err
	}

	set := catalog.Set{
		ID:       doc.ID,
		Name:     doc.Name,
		GameID:   doc.GameID,
		Category: catalog.CategoryForGame(doc.GameID),
		Cards:    make([]catalog.Card, 0, len(doc.Cards)),
	}
	seen := make(map[string]struct{}, len(doc.Cards))
	for i, cd := range doc.Cards {
		field := fmt.Sprintf("cards[%d]", i)
		if err := requireGUID(field+".id", cd.ID); err != nil {
			return catalog.Set{}, err
		}
		if cd.Name == "" {
			return catalog.Set{}, &ParseError{Field: field + ".name", Err: errMissing}
		}
		key := strings.ToLower(cd.ID)
		if _, dup := seen[key]; dup {
			return catalog.Set{}, &ParseError{Field: field + ".id", Err: fmt.Errorf("%w %s", errDuplicate, cd.ID)}
		}
		seen[key] = struct{}{}

		card := catalog.Card{ID: cd.ID, Name: cd.Name}
		if len(cd.Alternates) > 0 {
			alt := cd.Alternates[0]
			if alt.Name == "" {
				return catalog.Set{}, &ParseError{Field: field + ".alternate.name", Err: errMissing}
			}
			card.AlternateName = alt.Name
			card.HasAlternate = true
		}
		set.Cards = append(set.Cards, card)
	}
	return set, nil
}

func requireGUID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ParseError{Field: field, Err: errMissing}
	}
	if _, err := uuid.Parse(value); err != nil {
		return &ParseError{Field: field, Err: fmt.Errorf("%w: %q", errInvalidID, value)}
	}
	return nil
}

// ParseFile parses the set document at path.
func ParseFile(path string) (catalog.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.Set{}, fmt.Errorf("open set file: %w", err)
	}
	defer f.Close()

	set, err := ParseSet(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return catalog.Set{}, err
	}
	return set, nil
}

// LoadSets parses <dir>/<set>/set.xml for every subdirectory of dir, sorted
// by directory name. Subdirectories without a set.xml are skipped.
func LoadSets(dir string) ([]catalog.Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sets directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sets []catalog.Set
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), SetFileName)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		set, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
