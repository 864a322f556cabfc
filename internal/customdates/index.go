// Package customdates tracks which dates of the rolling horizon carry an override.
// The index only annotates a date picker; the override store stays authoritative.
package customdates

import (
	"sort"

	"medsched/internal/model"
)

// Index is an immutable set of customised dates.
type Index struct {
	dates map[model.Date]struct{}
}

// Rebuild projects override records onto their dates.
func Rebuild(overrides []model.DayOverride) Index {
	idx := Index{dates: make(map[model.Date]struct{}, len(overrides))}
	for _, o := range overrides {
		idx.dates[o.Date] = struct{}{}
	}
	return idx
}

func (i Index) Has(d model.Date) bool {
	_, ok := i.dates[d]
	return ok
}

func (i Index) Len() int { return len(i.dates) }

// Dates returns the customised dates in ascending order.
func (i Index) Dates() []model.Date {
	out := make([]model.Date, 0, len(i.dates))
	for d := range i.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Before(out[b]) })
	return out
}
