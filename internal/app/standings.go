package app

import (
	"slices"

	"github.com/DoyleJ11/ddz-client/internal/api"
)

// Rank orders stats by total points, then total wins. Ties share a rank.
func Rank(stats []api.PlayerStats) []Standing {
	sorted := slices.Clone(stats)
	slices.SortStableFunc(sorted, func(a, b api.PlayerStats) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}
		return b.TotalWins - a.TotalWins
	})

	out := make([]Standing, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && s.TotalPoints == sorted[i-1].TotalPoints && s.TotalWins == sorted[i-1].TotalWins {
			rank = out[i-1].Rank
		}
		out[i] = Standing{PlayerStats: s, Rank: rank}
	}
	return out
}
