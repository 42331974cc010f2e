package reconcile

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"octpack/internal/catalog"
)

// DefaultSetDistanceThreshold absorbs small naming drift between the two
// catalogs, such as a missing leading "The".
const DefaultSetDistanceThreshold = 5

// Correlator aligns local sets with the remote set list.
type Correlator struct {
	// Threshold is exclusive: a pair is accepted only when its distance is
	// strictly smaller.
	Threshold int
	// Workers bounds parallel scoring. Zero means GOMAXPROCS.
	Workers int
}

// NewCorrelator returns a correlator with the default threshold.
func NewCorrelator() *Correlator {
	return &Correlator{Threshold: DefaultSetDistanceThreshold}
}

// CorrelationEntry explains how one remote set was scored.
type CorrelationEntry struct {
	Remote    catalog.RemoteSet
	LocalName string
	Distance  int
	// Accepted is true when Distance is under the threshold.
	Accepted bool
	// Duplicate is true when an earlier remote set already claimed LocalName.
	Duplicate bool
}

// Correlation is the full outcome of a correlation pass.
type Correlation struct {
	// Entries follow remote order.
	Entries []CorrelationEntry
	// Sets are the local sets in scope, in remote order.
	Sets []catalog.Set
	// Unmatched are local sets with no remote counterpart, in input order.
	Unmatched []catalog.Set
}

// Correlate returns the local sets that have a remote counterpart, ordered
// by the position of that counterpart in remote.
func (c *Correlator) Correlate(ctx context.Context, local []catalog.Set, remote []catalog.RemoteSet) ([]catalog.Set, error) {
	report, err := c.CorrelateReport(ctx, local, remote)
	if err != nil {
		return nil, err
	}
	return report.Sets, nil
}

// CorrelateReport runs a correlation pass and keeps the per-remote scoring.
//
// When several remote sets land on the same local name, the first one in
// remote order fixes the position; later ones are marked Duplicate.
func (c *Correlator) CorrelateReport(ctx context.Context, local []catalog.Set, remote []catalog.RemoteSet) (Correlation, error) {
	if len(remote) == 0 {
		return Correlation{Unmatched: slices.Clone(local)}, nil
	}
	if len(local) == 0 {
		return Correlation{}, ErrEmptyCandidateSet
	}

	names := make([]string, len(local))
	for i, set := range local {
		names[i] = set.Name
	}

	matches := make([]Match, len(remote))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i, rs := range remote {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := Closest(rs.Name, names)
			if err != nil {
				return err
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Correlation{}, err
	}

	threshold := max(c.Threshold, 0)
	positions := make(map[string]int, len(remote))
	entries := make([]CorrelationEntry, len(remote))
	for i, m := range matches {
		name := names[m.Index]
		entry := CorrelationEntry{
			Remote:    remote[i],
			LocalName: name,
			Distance:  m.Distance,
			Accepted:  m.Distance < threshold,
		}
		if entry.Accepted {
			if _, seen := positions[name]; seen {
				entry.Duplicate = true
			} else {
				positions[name] = i
			}
		}
		entries[i] = entry
	}

	var selected, unmatched []catalog.Set
	for _, set := range local {
		if _, ok := positions[set.Name]; ok {
			selected = append(selected, set)
		} else {
			unmatched = append(unmatched, set)
		}
	}
	slices.SortStableFunc(selected, func(a, b catalog.Set) int {
		return positions[a.Name] - positions[b.Name]
	})

	return Correlation{Entries: entries, Sets: selected, Unmatched: unmatched}, nil
}

func (c *Correlator) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
