// Package feed holds the engagement, trending and search logic for the idea
// feed. Everything here is a pure function over an already-loaded idea slice;
// no I/O, no shared state beyond the Collection container.
package feed

import (
	"math"
	"sort"
	"strings"
	"time"

	"ideafeed/internal/models"
)

// TrendingSize is the number of ideas retained in the trending subset.
const TrendingSize = 10

// Engagement is the raw engagement metric for an idea:
// likes + comments + distinct viewers. Missing counters count as zero.
func Engagement(idea models.Idea) int {
	likes, comments, clicks := idea.Likes, idea.Comments, idea.Clicks
	if likes < 0 {
		likes = 0
	}
	if comments < 0 {
		comments = 0
	}
	if clicks < 0 {
		clicks = 0
	}
	return likes + comments + clicks
}

// TrendingScore is engagement divided by a time-decay factor:
//
//	score = engagement / (ageHours + 2)^1.8
//
// The +2 offset keeps brand-new ideas from dividing by ~zero and the 1.8
// exponent decays older ideas super-linearly, so accumulating raw engagement
// does not keep an idea trending forever. A malformed age (negative, e.g.
// from a timestamp in the future) is clamped to zero rather than producing
// NaN, so the result is always finite and non-negative.
func TrendingScore(idea models.Idea, now time.Time) float64 {
	ageHours := now.Sub(idea.CreatedAt).Hours()
	if math.IsNaN(ageHours) || ageHours < 0 {
		ageHours = 0
	}
	return float64(Engagement(idea)) / math.Pow(ageHours+2, 1.8)
}

// Trending scores every idea, sorts by descending score and returns the top
// TrendingSize. The full re-sort on every call is deliberate: the working
// set is the loaded snapshot, which is small. The input slice is not
// modified.
func Trending(ideas []models.Idea, now time.Time) []models.Idea {
	scored := make([]models.Idea, len(ideas))
	copy(scored, ideas)
	sort.SliceStable(scored, func(a, b int) bool {
		return TrendingScore(scored[a], now) > TrendingScore(scored[b], now)
	})
	if len(scored) > TrendingSize {
		scored = scored[:TrendingSize]
	}
	return scored
}

// Search returns the ideas whose headline, description or any tag contains
// the query, case-insensitively. An empty query returns the input unchanged,
// same elements in the same order. Idempotent and side-effect free.
func Search(ideas []models.Idea, query string) []models.Idea {
	if query == "" {
		return ideas
	}
	q := strings.ToLower(query)
	matched := make([]models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if matches(idea, q) {
			matched = append(matched, idea)
		}
	}
	return matched
}

func matches(idea models.Idea, q string) bool {
	if strings.Contains(strings.ToLower(idea.Headline), q) ||
		strings.Contains(strings.ToLower(idea.Description), q) {
		return true
	}
	for _, tag := range idea.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
