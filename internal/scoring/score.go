package scoring

import (
	"sort"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// Contribution is one user's scored activity for the current period.
type Contribution struct {
	UserName string                 `json:"user_name"`
	Total    int64                  `json:"total"`
	ByDomain map[model.Domain]int64 `json:"by_domain"`
	Actions  int                    `json:"actions"`
}

// Options narrows scoring to one domain. The zero value scores both.
type Options struct {
	Domain model.Domain
}

// CurrentPeriod trims a newest-first entry list to the current scoring
// epoch: everything strictly after the most recent reset marker. With
// no reset present the whole log is the current period. A reset is a
// logical boundary, not a physical delete.
func CurrentPeriod(entries []model.HistoryEntry) []model.HistoryEntry {
	for i, e := range entries {
		if e.Action == model.ActionReset {
			return entries[:i]
		}
	}
	return entries
}

// Score accumulates per-user contributions from ledger entries. Only
// strictly positive deltas count; each qualifying entry adds
// delta × multiplier to the user's total and matching domain subtotal
// and bumps the actions counter. Rows with a structured delta use it
// directly; legacy rows go through the text parser.
func Score(entries []model.HistoryEntry, points store.PointsMap, opts Options) map[string]*Contribution {
	contributions := make(map[string]*Contribution)

	for _, e := range entries {
		if opts.Domain != "" && e.Domain != opts.Domain {
			continue
		}

		var delta int64
		if e.Delta != nil {
			delta = *e.Delta
		} else {
			delta = ParseSignedDelta(e.Action, e.Details)
		}
		if delta <= 0 {
			continue
		}

		earned := delta * int64(points.Multiplier(e.Domain, e.Category, e.ItemName))

		c := contributions[e.UserName]
		if c == nil {
			c = &Contribution{
				UserName: e.UserName,
				ByDomain: make(map[model.Domain]int64),
			}
			contributions[e.UserName] = c
		}
		c.Total += earned
		c.ByDomain[e.Domain] += earned
		c.Actions++
	}

	return contributions
}

// TopN ranks contributions by total descending. Ties break on user
// name ascending so the ranking is deterministic.
func TopN(contributions map[string]*Contribution, n int) []Contribution {
	ranked := make([]Contribution, 0, len(contributions))
	for _, c := range contributions {
		ranked = append(ranked, *c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].UserName < ranked[j].UserName
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
