package internaldefs

import (
	"strings"
	"testing"
)

func TestDefsAreUniqueAndPrefixed(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "goaccount_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate name %q", def.Name)
		}
		seen[def.Name] = true
	}
	for _, def := range HistogramDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate name %q", def.Name)
		}
		seen[def.Name] = true
	}
}

func TestBucketsLineUp(t *testing.T) {
	if len(UpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("expected %d suffixes, got %d", len(UpperBounds)+1, len(HistogramBoundSuffix))
	}
	if UpperBounds[0] != 0.005 || UpperBounds[len(UpperBounds)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", UpperBounds)
	}

	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
