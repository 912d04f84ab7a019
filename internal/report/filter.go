package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kapu/reader-sim-go/internal/domain"
)

type SortField string

const (
	SortBySeq     SortField = "seq"
	SortByScore   SortField = "score"
	SortByTitle   SortField = "title"
	SortByPersona SortField = "persona"
)

// Filter selects and orders reviews. Zero values mean "no constraint".
type Filter struct {
	PersonaIDs []string
	Tier       Tier
	MinScore   int
	Title      string
	Tag        string
	SortBy     SortField
	Descending bool
}

// Apply returns the matching reviews in the requested order. Sorting is
// stable, so equal keys keep iteration order.
func (f Filter) Apply(reviews []domain.Review) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if f.matches(r) {
			out = append(out, r)
		}
	}

	var compare func(a, b domain.Review) int
	switch f.SortBy {
	case SortByScore:
		compare = func(a, b domain.Review) int { return cmp.Compare(a.Score, b.Score) }
	case SortByTitle:
		compare = func(a, b domain.Review) int { return strings.Compare(a.Title, b.Title) }
	case SortByPersona:
		compare = func(a, b domain.Review) int { return strings.Compare(a.PersonaName, b.PersonaName) }
	default:
		compare = func(a, b domain.Review) int { return cmp.Compare(a.Seq, b.Seq) }
	}
	if f.Descending {
		asc := compare
		compare = func(a, b domain.Review) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func (f Filter) matches(r domain.Review) bool {
	if len(f.PersonaIDs) > 0 && !slices.Contains(f.PersonaIDs, r.PersonaID) {
		return false
	}
	if f.Tier != "" && TierOf(float64(r.Score)) != f.Tier {
		return false
	}
	if f.MinScore > 0 && r.Score < f.MinScore {
		return false
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Tag != "" && !slices.ContainsFunc(r.Tags, func(t string) bool { return strings.EqualFold(t, f.Tag) }) {
		return false
	}
	return true
}
