// Package domain holds match suggestion types and the pure merge rules that
// make suggestion lists deterministic.
package domain

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Method identifies the stage that produced a suggestion.
type Method string

const (
	MethodExactEmail Method = "exact_email"
	MethodDomain     Method = "domain"
	MethodAI         Method = "ai"
)

// rank orders methods for tie breaking; lower wins.
func (m Method) rank() int {
	switch m {
	case MethodExactEmail:
		return 0
	case MethodDomain:
		return 1
	default:
		return 2
	}
}

// Band is the confidence label shown next to a suggestion.
type Band string

const (
	BandNearCertain Band = "near_certain"
	BandVeryLikely  Band = "very_likely"
	BandProbable    Band = "probable"
	BandPossible    Band = "possible"
	BandSuppressed  Band = "suppressed"
)

const (
	// MinConfidence is the lowest combined confidence ever shown.
	MinConfidence = 60
	// MaxSuggestions caps the list returned to the user.
	MaxSuggestions = 3
	// AIThreshold: the AI stage only runs while the best suggestion is below it.
	AIThreshold = 85
)

// BandFor maps a combined confidence to its band.
func BandFor(confidence int) Band {
	switch {
	case confidence >= 95:
		return BandNearCertain
	case confidence >= 85:
		return BandVeryLikely
	case confidence >= 70:
		return BandProbable
	case confidence >= MinConfidence:
		return BandPossible
	default:
		return BandSuppressed
	}
}

// MatchSuggestion proposes a startup and juror for an invitation. Suggestions
// are never applied without a user confirming them.
type MatchSuggestion struct {
	StartupID          uuid.UUID `json:"startupId"`
	JurorID            uuid.UUID `json:"jurorId"`
	StartupConfidence  int       `json:"startupConfidence"`
	JurorConfidence    int       `json:"jurorConfidence"`
	CombinedConfidence int       `json:"combinedConfidence"`
	Reasoning          string    `json:"reasoning"`
	Method             Method    `json:"matchMethod"`
	Band               Band      `json:"band"`
}

type pairKey struct {
	startup uuid.UUID
	juror   uuid.UUID
}

// Merge combines suggestion lists. Each (startup, juror) pair is kept once
// with its highest combined confidence; suggestions below MinConfidence are
// dropped; the result is sorted by confidence, then method rank, then ids,
// and capped at MaxSuggestions.
func Merge(lists ...[]MatchSuggestion) []MatchSuggestion {
	best := make(map[pairKey]MatchSuggestion)
	for _, list := range lists {
		for _, s := range list {
			if s.StartupID == uuid.Nil || s.JurorID == uuid.Nil {
				continue
			}
			s.CombinedConfidence = clamp(s.CombinedConfidence)
			s.StartupConfidence = clamp(s.StartupConfidence)
			s.JurorConfidence = clamp(s.JurorConfidence)
			if s.CombinedConfidence < MinConfidence {
				continue
			}
			s.Band = BandFor(s.CombinedConfidence)
			key := pairKey{startup: s.StartupID, juror: s.JurorID}
			if cur, ok := best[key]; !ok || less(s, cur) {
				best[key] = s
			}
		}
	}

	out := make([]MatchSuggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// less reports whether a sorts before b.
func less(a, b MatchSuggestion) bool {
	if a.CombinedConfidence != b.CombinedConfidence {
		return a.CombinedConfidence > b.CombinedConfidence
	}
	if a.Method.rank() != b.Method.rank() {
		return a.Method.rank() < b.Method.rank()
	}
	if c := bytes.Compare(a.StartupID[:], b.StartupID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.JurorID[:], b.JurorID[:]) < 0
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Best returns the highest combined confidence in a merged list.
func Best(suggestions []MatchSuggestion) int {
	if len(suggestions) == 0 {
		return 0
	}
	return suggestions[0].CombinedConfidence
}
