package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsUniqueAndPrefixed(t *testing.T) {
	seenNames := map[string]bool{}
	seenIDs := map[uint16]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "gocaptcha_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		if seenNames[def.Name] {
			t.Fatalf("duplicate counter name %q", def.Name)
		}
		if seenIDs[uint16(def.ID)] {
			t.Fatalf("duplicate counter id %d", def.ID)
		}
		seenNames[def.Name] = true
		seenIDs[uint16(def.ID)] = true
	}
}

func TestBucketsShape(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("expected one suffix per bound plus +Inf")
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
