package hallofbeorn_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"octpack/internal/hallofbeorn"
	"octpack/internal/services"
)

const searchBody = `[
  {"Title":"Brand son of Bain","IsUnique":true,"CardType":"Hero","Front":{"ImagePath":"https://img/Brand-son-of-Bain.jpg","Traits":["Dale."]},"CardSet":"The Wilds of Rhovanion","Number":1},
  {"Title":"Traveling North","IsUnique":false,"CardType":"Quest","Front":{"ImagePath":"https://img/Traveling-North-1A.jpg"},"Back":{"ImagePath":"https://img/Traveling-North-1B.jpg"},"CardSet":"The Wilds of Rhovanion","Number":60}
]`

const setsBody = `[
  {"Name":"Core Set","SetType":"Core"},
  {"Name":"The Hunt for Gollum","SetType":"Adventure Pack"},
  {"Name":"Khazad-dûm","SetType":"Deluxe Expansion"}
]`

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.entries[key]
	return body, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = append([]byte(nil), body...)
	return nil
}

func TestCardsDecodesSearch(t *testing.T) {
	var (
		mu              sync.Mutex
		gotQuery, gotUA string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Export/Search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		mu.Lock()
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	client, err := hallofbeorn.New(srv.URL+"/", hallofbeorn.WithUserAgent("octpack-test"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	cards, err := client.Cards(context.Background(), "The Wilds of Rhovanion")
	if err != nil {
		t.Fatalf("Cards returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotQuery != "CardSet=The%20Wilds%20of%20Rhovanion" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotUA != "octpack-test" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Title != "Brand son of Bain" || cards[0].FrontImage != "https://img/Brand-son-of-Bain.jpg" || cards[0].BackImage != "" {
		t.Fatalf("unexpected first card %+v", cards[0])
	}
	if cards[1].BackImage != "https://img/Traveling-North-1B.jpg" {
		t.Fatalf("unexpected back image %q", cards[1].BackImage)
	}
	if cards[0].SetName != "The Wilds of Rhovanion" {
		t.Fatalf("unexpected set name %q", cards[0].SetName)
	}
	if !strings.Contains(string(cards[0].Attributes), `"IsUnique":true`) {
		t.Fatalf("expected raw attributes to be kept, got %s", cards[0].Attributes)
	}
}

func TestSetsPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Export/CardSets" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(setsBody))
	}))
	defer srv.Close()

	client, err := hallofbeorn.New(srv.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	sets, err := client.Sets(context.Background())
	if err != nil {
		t.Fatalf("Sets returned error: %v", err)
	}
	want := []string{"Core Set", "The Hunt for Gollum", "Khazad-dûm"}
	if len(sets) != len(want) {
		t.Fatalf("expected %d sets, got %d", len(want), len(sets))
	}
	for i, name := range want {
		if sets[i].Name != name {
			t.Fatalf("set %d: got %q want %q", i, sets[i].Name, name)
		}
	}
	if sets[0].Category != "Core" {
		t.Fatalf("unexpected category %q", sets[0].Category)
	}
}

func TestCacheSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(setsBody))
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client, err := hallofbeorn.New(srv.URL, hallofbeorn.WithCache(cache))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for range 3 {
		if _, err := client.Sets(context.Background()); err != nil {
			t.Fatalf("Sets returned error: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single network call, got %d", n)
	}
	if _, ok, _ := cache.Get(context.Background(), client.SetsURL()); !ok {
		t.Fatal("expected response to be cached under its URL")
	}
}

func TestInvalidResponseIsNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client, err := hallofbeorn.New(srv.URL, hallofbeorn.WithCache(cache))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()
	const setName = "The Wilds of Rhovanion"

	if _, err := client.Cards(ctx, setName); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for maintenance page, got %v", err)
	}
	if _, ok, _ := cache.Get(ctx, client.CardsURL(setName)); ok {
		t.Fatal("maintenance page must not be cached")
	}

	cards, err := client.Cards(ctx, setName)
	if err != nil {
		t.Fatalf("second Cards returned error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected the second call to reach the server, got %d calls", n)
	}
	if _, ok, _ := cache.Get(ctx, client.CardsURL(setName)); !ok {
		t.Fatal("expected valid response to be cached")
	}
}

func TestInvalidCachedEntryIsRefetched(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(setsBody))
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client, err := hallofbeorn.New(srv.URL, hallofbeorn.WithCache(cache))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()
	if err := cache.Put(ctx, client.SetsURL(), []byte(`[{"SetType":"Core"}]`)); err != nil {
		t.Fatal(err)
	}

	sets, err := client.Sets(ctx)
	if err != nil {
		t.Fatalf("Sets returned error: %v", err)
	}
	if len(sets) != 3 || calls.Load() != 1 {
		t.Fatalf("expected 3 sets from one network call, got %d sets and %d calls", len(sets), calls.Load())
	}
	body, ok, _ := cache.Get(ctx, client.SetsURL())
	if !ok || !strings.Contains(string(body), "Core Set") {
		t.Fatalf("expected cache entry to be replaced, got %q", body)
	}
}

func TestStatusErrorsCarryMarkers(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusServiceUnavailable, services.ErrTransient},
		{http.StatusForbidden, services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			client, err := hallofbeorn.New(srv.URL)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			_, err = client.Cards(context.Background(), "Core Set")
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if !strings.Contains(err.Error(), "nope") {
				t.Fatalf("expected body snippet in error, got %v", err)
			}
		})
	}
}

func TestCardsRejectsIncompleteItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Title":"Gandalf","Front":{}}]`))
	}))
	defer srv.Close()

	client, err := hallofbeorn.New(srv.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Cards(context.Background(), "Core Set")
	var de *hallofbeorn.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Field != "Front.ImagePath" || de.Index != 0 {
		t.Fatalf("unexpected decode error %+v", de)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := hallofbeorn.New("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
