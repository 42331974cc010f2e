package reconcile_test

import (
	"errors"
	"testing"

	"octpack/internal/reconcile"
)

func TestClosestPrefersSingleEdit(t *testing.T) {
	candidates := []string{"Gxndxlf", "Ganda", "Gandalx", "Saruman"}
	m, err := reconcile.Closest("Gandalf", candidates)
	if err != nil {
		t.Fatalf("Closest returned error: %v", err)
	}
	if m.Index != 2 || m.Distance != 1 {
		t.Fatalf("unexpected match %+v", m)
	}
}

func TestClosestTieBreaksOnInputOrder(t *testing.T) {
	candidates := []string{"Orc", "ax", "ay", "az"}
	for range 20 {
		m, err := reconcile.Closest("ab", candidates)
		if err != nil {
			t.Fatalf("Closest returned error: %v", err)
		}
		if m.Index != 1 || m.Distance != 1 {
			t.Fatalf("expected first of the tied candidates, got %+v", m)
		}
	}
}

func TestClosestCountsRunes(t *testing.T) {
	m, err := reconcile.Closest("Khazad-dum", []string{"Khazad-dûm"})
	if err != nil {
		t.Fatalf("Closest returned error: %v", err)
	}
	if m.Distance != 1 {
		t.Fatalf("expected a single substitution for an accented rune, got %d", m.Distance)
	}
}

func TestClosestIsCaseSensitive(t *testing.T) {
	m, err := reconcile.Closest("fire-drake", []string{"Fire-Drake", "fire-drakes"})
	if err != nil {
		t.Fatalf("Closest returned error: %v", err)
	}
	if m.Index != 1 {
		t.Fatalf("expected case to count as an edit, got %+v", m)
	}
}

func TestClosestEmptyCandidates(t *testing.T) {
	if _, err := reconcile.Closest("Gandalf", nil); !errors.Is(err, reconcile.ErrEmptyCandidateSet) {
		t.Fatalf("expected ErrEmptyCandidateSet, got %v", err)
	}
}
