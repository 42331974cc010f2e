package reconcile

import (
	"context"
	"path"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"octpack/internal/catalog"
)

// Face identifies which side of a card a substitution applies to.
type Face string

const (
	FaceFront Face = "front"
	FaceBack  Face = "back"
)

// Substitution records a card name that had no exact remote title and the
// remote title used in its place.
type Substitution struct {
	CardID   string `json:"card_id"`
	Face     Face   `json:"face"`
	Query    string `json:"query"`
	Title    string `json:"title"`
	Distance int    `json:"distance"`
}

// Plan is the outcome of resolving one set. Downloads has one entry per input
// card in input order. Substitutions follow the same order, front before back.
type Plan struct {
	Downloads     []catalog.Download
	Substitutions []Substitution
}

// Default face markers in Hall of Beorn image paths, e.g. "Quest-1A.jpg".
const (
	DefaultFrontMarker = "A.jpg"
	DefaultBackMarker  = "B.jpg"
)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithWorkers bounds parallel resolution. Values below one are ignored.
func WithWorkers(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithFaceMarkers overrides the front/back suffixes used to derive the back
// image of a card whose two faces share a name. Empty or identical markers
// are ignored.
func WithFaceMarkers(front, back string) ResolverOption {
	return func(r *Resolver) {
		if front == "" || back == "" || front == back {
			return
		}
		r.frontMarker = front
		r.backMarker = back
	}
}

// Resolver maps local cards onto remote card images.
type Resolver struct {
	workers     int
	frontMarker string
	backMarker  string
}

// NewResolver constructs a resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		workers:     runtime.GOMAXPROCS(0),
		frontMarker: DefaultFrontMarker,
		backMarker:  DefaultBackMarker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resolved struct {
	download      catalog.Download
	substitutions []Substitution
}

// Resolve builds the download plan for cards against the remote cards of the
// same set. It fails only when remote is empty or ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, cards []catalog.Card, remote []catalog.RemoteCard) (Plan, error) {
	if len(remote) == 0 {
		return Plan{}, ErrEmptyCandidateSet
	}

	lookup := &remoteLookup{
		index:  NewIndex(remote),
		titles: make([]string, len(remote)),
	}
	for i, card := range remote {
		lookup.titles[i] = card.Title
	}

	slots := make([]resolved, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, card := range cards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slot, err := r.resolveCard(card, lookup)
			if err != nil {
				return err
			}
			slots[i] = slot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Plan{}, err
	}

	plan := Plan{Downloads: make([]catalog.Download, len(slots))}
	for i, slot := range slots {
		plan.Downloads[i] = slot.download
		plan.Substitutions = append(plan.Substitutions, slot.substitutions...)
	}
	return plan, nil
}

func (r *Resolver) resolveCard(card catalog.Card, lookup *remoteLookup) (resolved, error) {
	var out resolved

	front, sub, err := lookup.find(card.Name)
	if err != nil {
		return out, err
	}
	if sub != nil {
		sub.CardID = card.ID
		sub.Face = FaceFront
		out.substitutions = append(out.substitutions, *sub)
	}
	out.download = catalog.Download{ID: card.ID, FrontURL: front.FrontImage}

	switch {
	case !card.HasAlternate:
	case card.SelfReferentialBack():
		out.download.BackURL = r.backLocator(front.FrontImage)
	default:
		back, sub, err := lookup.find(card.AlternateName)
		if err != nil {
			return out, err
		}
		if sub != nil {
			sub.CardID = card.ID
			sub.Face = FaceBack
			out.substitutions = append(out.substitutions, *sub)
		}
		out.download.BackURL = back.FrontImage
	}
	return out, nil
}

// backLocator swaps the last front marker in locator for the back marker.
// Without a marker, the back marker's stem is inserted before the extension
// so the result never equals locator.
func (r *Resolver) backLocator(locator string) string {
	if idx := strings.LastIndex(locator, r.frontMarker); idx >= 0 {
		return locator[:idx] + r.backMarker + locator[idx+len(r.frontMarker):]
	}
	stem := strings.TrimSuffix(r.backMarker, path.Ext(r.backMarker))
	if stem == "" {
		stem = r.backMarker
	}
	ext := path.Ext(locator)
	if ext == "" {
		return locator + stem
	}
	return strings.TrimSuffix(locator, ext) + stem + ext
}

type remoteLookup struct {
	index  *Index
	titles []string
}

// find returns the exact title match, or the closest title along with a
// Substitution describing the fallback.
func (l *remoteLookup) find(name string) (catalog.RemoteCard, *Substitution, error) {
	if card, ok := l.index.Lookup(name); ok {
		return card, nil, nil
	}
	m, err := Closest(name, l.titles)
	if err != nil {
		return catalog.RemoteCard{}, nil, err
	}
	title := l.titles[m.Index]
	card, _ := l.index.Lookup(title)
	return card, &Substitution{Query: name, Title: card.Title, Distance: m.Distance}, nil
}
