// Package rank computes the composite advisory score for digest candidates.
//
// The composite score blends venue prestige with the social-attention signal.
// It is carried on every candidate for downstream visibility, but final
// selection deliberately sorts on the raw attention values instead: the
// Crossref path orders by attention score alone, the arXiv path by attention
// score then recency. Unifying the two is pending product sign-off.
package rank

import (
	"math"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// VenueBonus is added for items published in an allow-listed venue.
const VenueBonus = 10.0

// VenueSet is a case-sensitive membership set of allow-listed venue names.
type VenueSet map[string]struct{}

// NewVenueSet builds a VenueSet from a list of venue names.
func NewVenueSet(venues []string) VenueSet {
	set := make(VenueSet, len(venues))
	for _, v := range venues {
		set[v] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set.
func (s VenueSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Score computes the composite score for one candidate:
//
//	venue_bonus + log2(1 + mentions) + 0.25 * log2(1 + attention_score)
//
// The bonus applies when either the journal or the source label is in the
// allow-list. Missing attention values contribute zero.
func Score(c *domain.Candidate, topVenues VenueSet) float64 {
	bonus := 0.0
	if topVenues.Contains(c.Journal) || topVenues.Contains(c.Source.Label()) {
		bonus = VenueBonus
	}
	return bonus + math.Log2(1+c.Attention.Mentions) + 0.25*math.Log2(1+c.Attention.Score)
}

// ScoreAll sets RankScore on every candidate in place.
func ScoreAll(candidates []domain.Candidate, topVenues VenueSet) {
	for i := range candidates {
		candidates[i].RankScore = Score(&candidates[i], topVenues)
	}
}
