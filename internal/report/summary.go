// Package report aggregates a run's reviews for display and export.
package report

import (
	"cmp"
	"slices"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierOf buckets a score: 8 and up is high, 6 and 7 medium, the rest low.
func TierOf(score float64) Tier {
	switch {
	case score >= float64(constants.ReportConfig.HighTierMin):
		return TierHigh
	case score >= float64(constants.ReportConfig.MediumTierMin):
		return TierMedium
	default:
		return TierLow
	}
}

type TitleStat struct {
	Title        string  `json:"title"`
	Angle        string  `json:"angle,omitempty"`
	AverageScore float64 `json:"averageScore"`
	Reviews      int     `json:"reviews"`
	Tier         Tier    `json:"tier"`
	Original     bool    `json:"original,omitempty"`
}

type PersonaStat struct {
	PersonaID    string  `json:"personaId"`
	PersonaName  string  `json:"personaName"`
	AverageScore float64 `json:"averageScore"`
	Reviews      int     `json:"reviews"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Summary is the headline view of a run.
type Summary struct {
	TotalTitles    int                  `json:"totalTitles"`
	TotalReviews   int                  `json:"totalReviews"`
	FallbackCount  int                  `json:"fallbackCount"`
	AverageScore   float64              `json:"averageScore"`
	HighScoreCount int                  `json:"highScoreCount"`
	Best           *TitleStat           `json:"best,omitempty"`
	Worst          *TitleStat           `json:"worst,omitempty"`
	Titles         []TitleStat          `json:"titles"`
	Personas       []PersonaStat        `json:"personas"`
	TitlesByTier   map[Tier][]TitleStat `json:"titlesByTier"`
	TopTags        []TagCount           `json:"topTags"`
}

// Summarize groups reviews by title (pool order) and by persona (first
// appearance order).
func Summarize(res *domain.RunResult) Summary {
	reviews := res.Reviews
	s := Summary{
		TotalReviews: len(reviews),
		TitlesByTier: map[Tier][]TitleStat{TierHigh: {}, TierMedium: {}, TierLow: {}},
		Titles:       []TitleStat{},
		Personas:     []PersonaStat{},
		TopTags:      []TagCount{},
	}

	angles := map[string]string{}
	for _, v := range res.Variants {
		if _, ok := angles[v.Title]; !ok {
			angles[v.Title] = v.Angle
		}
	}

	titleIdx := map[string]int{}
	titleSums := []int{}
	for _, t := range res.Pool() {
		if _, ok := titleIdx[t]; ok {
			continue
		}
		titleIdx[t] = len(s.Titles)
		s.Titles = append(s.Titles, TitleStat{Title: t, Angle: angles[t], Original: t == res.OriginalTitle})
		titleSums = append(titleSums, 0)
	}

	personaIdx := map[string]int{}
	personaSums := []int{}
	tagCounts := map[string]int{}
	tagOrder := []string{}
	total := 0

	for _, r := range reviews {
		total += r.Score
		if float64(r.Score) >= constants.ReportConfig.HighTierMin {
			s.HighScoreCount++
		}
		if r.Fallback {
			s.FallbackCount++
		}

		ti, ok := titleIdx[r.Title]
		if !ok {
			ti = len(s.Titles)
			titleIdx[r.Title] = ti
			s.Titles = append(s.Titles, TitleStat{Title: r.Title})
			titleSums = append(titleSums, 0)
		}
		s.Titles[ti].Reviews++
		titleSums[ti] += r.Score

		pi, ok := personaIdx[r.PersonaID]
		if !ok {
			pi = len(s.Personas)
			personaIdx[r.PersonaID] = pi
			s.Personas = append(s.Personas, PersonaStat{PersonaID: r.PersonaID, PersonaName: r.PersonaName})
			personaSums = append(personaSums, 0)
		}
		s.Personas[pi].Reviews++
		personaSums[pi] += r.Score

		for _, tag := range r.Tags {
			if tagCounts[tag] == 0 {
				tagOrder = append(tagOrder, tag)
			}
			tagCounts[tag]++
		}
	}

	if len(reviews) > 0 {
		s.AverageScore = average(total, len(reviews))
	}

	reviewed := s.Titles[:0:0]
	for i := range s.Titles {
		t := &s.Titles[i]
		if t.Reviews > 0 {
			t.AverageScore = average(titleSums[i], t.Reviews)
		}
		t.Tier = TierOf(t.AverageScore)
		s.TitlesByTier[t.Tier] = append(s.TitlesByTier[t.Tier], *t)
		if t.Reviews > 0 {
			reviewed = append(reviewed, *t)
		}
	}
	s.TotalTitles = len(s.Titles)

	for i := range s.Personas {
		s.Personas[i].AverageScore = average(personaSums[i], s.Personas[i].Reviews)
	}

	// First maximum wins so the original title is preferred on ties.
	for i := range reviewed {
		if s.Best == nil || reviewed[i].AverageScore > s.Best.AverageScore {
			s.Best = &reviewed[i]
		}
		if s.Worst == nil || reviewed[i].AverageScore < s.Worst.AverageScore {
			s.Worst = &reviewed[i]
		}
	}

	for _, tag := range tagOrder {
		s.TopTags = append(s.TopTags, TagCount{Tag: tag, Count: tagCounts[tag]})
	}
	slices.SortStableFunc(s.TopTags, func(a, b TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(s.TopTags) > constants.ReportConfig.TopTags {
		s.TopTags = s.TopTags[:constants.ReportConfig.TopTags]
	}

	return s
}

func average(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// GroupByTitle returns reviews keyed by title, each group in iteration order.
func GroupByTitle(reviews []domain.Review) map[string][]domain.Review {
	groups := make(map[string][]domain.Review)
	for _, r := range reviews {
		groups[r.Title] = append(groups[r.Title], r)
	}
	return groups
}
