package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestBandFor(t *testing.T) {
	cases := []struct {
		confidence int
		want       Band
	}{
		{100, BandNearCertain},
		{95, BandNearCertain},
		{94, BandVeryLikely},
		{85, BandVeryLikely},
		{84, BandProbable},
		{70, BandProbable},
		{69, BandPossible},
		{60, BandPossible},
		{59, BandSuppressed},
		{0, BandSuppressed},
	}
	for _, tc := range cases {
		if got := BandFor(tc.confidence); got != tc.want {
			t.Fatalf("BandFor(%d) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestMergeDeduplicatesKeepingHighestConfidence(t *testing.T) {
	s1, j1 := uuid.New(), uuid.New()
	domainStage := []MatchSuggestion{{StartupID: s1, JurorID: j1, CombinedConfidence: 79, Method: MethodDomain}}
	aiStage := []MatchSuggestion{
		{StartupID: s1, JurorID: j1, CombinedConfidence: 88, Method: MethodAI},
		{StartupID: s1, JurorID: j1, CombinedConfidence: 61, Method: MethodAI},
	}

	merged := Merge(domainStage, aiStage)
	if len(merged) != 1 {
		t.Fatalf("expected one suggestion per pair, got %d", len(merged))
	}
	if merged[0].CombinedConfidence != 88 || merged[0].Method != MethodAI {
		t.Fatalf("expected the highest-confidence duplicate, got %+v", merged[0])
	}
	if merged[0].Band != BandVeryLikely {
		t.Fatalf("expected band to be recomputed, got %s", merged[0].Band)
	}
}

func TestMergeFiltersSortsAndCaps(t *testing.T) {
	var in []MatchSuggestion
	for _, c := range []int{59, 62, 90, 75, 80, 12} {
		in = append(in, MatchSuggestion{StartupID: uuid.New(), JurorID: uuid.New(), CombinedConfidence: c, Method: MethodAI})
	}
	in = append(in, MatchSuggestion{StartupID: uuid.New(), CombinedConfidence: 99, Method: MethodAI})

	merged := Merge(in)
	if len(merged) != MaxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", MaxSuggestions, len(merged))
	}
	want := []int{90, 80, 75}
	for i, s := range merged {
		if s.CombinedConfidence != want[i] {
			t.Fatalf("position %d: got %d, want %d", i, s.CombinedConfidence, want[i])
		}
		if s.CombinedConfidence < MinConfidence {
			t.Fatalf("suggestion below threshold leaked: %+v", s)
		}
	}
}

func TestMergeTieBreakIsDeterministic(t *testing.T) {
	s1 := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	s2 := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	j := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	a := MatchSuggestion{StartupID: s2, JurorID: j, CombinedConfidence: 80, Method: MethodDomain}
	b := MatchSuggestion{StartupID: s1, JurorID: j, CombinedConfidence: 80, Method: MethodAI}
	c := MatchSuggestion{StartupID: s1, JurorID: uuid.New(), CombinedConfidence: 80, Method: MethodAI}

	first := Merge([]MatchSuggestion{a, b, c})
	second := Merge([]MatchSuggestion{c, b, a})
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("unexpected lengths %d / %d", len(first), len(second))
	}
	for i := range first {
		if first[i].StartupID != second[i].StartupID || first[i].JurorID != second[i].JurorID {
			t.Fatalf("order depends on input order at %d", i)
		}
	}
	if first[0].Method != MethodDomain {
		t.Fatalf("domain must win a confidence tie against ai, got %s", first[0].Method)
	}
}
