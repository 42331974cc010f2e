package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RemoteCard is a card served by FakeHallOfBeorn. ImageFile is served under
// /Images/Cards/ and its body is the card title.
type RemoteCard struct {
	Title     string
	ImageFile string
	BackFile  string
}

// FakeHallOfBeorn serves the export endpoints plus card images.
type FakeHallOfBeorn struct {
	Server *httptest.Server

	mu       sync.Mutex
	sets     []string
	cards    map[string][]RemoteCard
	images   map[string]string
	requests map[string]int
}

// NewFakeHallOfBeorn starts a server publishing sets in the given order.
func NewFakeHallOfBeorn(t testing.TB, sets []string, cards map[string][]RemoteCard) *FakeHallOfBeorn {
	t.Helper()
	f := &FakeHallOfBeorn{
		sets:     sets,
		cards:    cards,
		images:   map[string]string{},
		requests: map[string]int{},
	}
	for _, list := range cards {
		for _, card := range list {
			f.images[card.ImageFile] = card.Title
			if card.BackFile != "" {
				f.images[card.BackFile] = card.Title + " (back)"
			}
		}
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server root.
func (f *FakeHallOfBeorn) URL() string { return f.Server.URL }

// Requests reports how many times path was requested.
func (f *FakeHallOfBeorn) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

// ImageURL returns the absolute URL for an image file.
func (f *FakeHallOfBeorn) ImageURL(file string) string {
	return f.Server.URL + "/Images/Cards/" + file
}

func (f *FakeHallOfBeorn) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests[r.URL.Path]++
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/Export/CardSets":
		payload := make([]map[string]string, 0, len(f.sets))
		for _, name := range f.sets {
			payload = append(payload, map[string]string{"Name": name, "SetType": "Adventure Pack"})
		}
		writeJSON(w, payload)
	case r.URL.Path == "/Export/Search":
		name := r.URL.Query().Get("CardSet")
		list, ok := f.cards[name]
		if !ok {
			writeJSON(w, []any{})
			return
		}
		payload := make([]map[string]any, 0, len(list))
		for _, card := range list {
			item := map[string]any{
				"Title":   card.Title,
				"CardSet": name,
				"Front":   map[string]string{"ImagePath": f.ImageURL(card.ImageFile)},
			}
			if card.BackFile != "" {
				item["Back"] = map[string]string{"ImagePath": f.ImageURL(card.BackFile)}
			}
			payload = append(payload, item)
		}
		writeJSON(w, payload)
	case strings.HasPrefix(r.URL.Path, "/Images/Cards/"):
		body, ok := f.images[strings.TrimPrefix(r.URL.Path, "/Images/Cards/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
