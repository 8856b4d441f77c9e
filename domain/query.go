package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the comparator of the view pipeline.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByTitle    SortKey = "title"
	SortByPriority SortKey = "priority"
)

// SortOrder flips the comparator. The base comparators are newest-first for
// date and highest-rank-first for priority, so "desc" is the natural order
// and "asc" inverts whichever base is chosen.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	CategoryAll     = "all"
	CategoryStarred = "starred"
)

// Criteria is the tuple of user-chosen filters driving Derive.
type Criteria struct {
	Query        string    `json:"query"`
	Category     string    `json:"category"`
	ShowArchived bool      `json:"showArchived"`
	SortBy       SortKey   `json:"sortBy"`
	SortOrder    SortOrder `json:"sortOrder"`
}

// Derive computes the display list for a note collection and a criteria set.
// It is pure: the inputs are never mutated and the result depends on nothing
// else, so callers may re-run it on every criteria change.
//
// Stages run in fixed order: archive filter, category filter, substring
// search, sort.
func Derive(notes []Note, c Criteria) []Note {
	query := strings.ToLower(strings.TrimSpace(c.Query))

	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.Archived != c.ShowArchived {
			continue
		}
		if !matchesCategory(n, c.Category) {
			continue
		}
		if query != "" && !matchesQuery(n, query) {
			continue
		}
		out = append(out, n)
	}

	cmp := baseComparator(c.SortBy)
	invert := c.SortOrder == SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		r := cmp(out[i], out[j])
		if invert {
			r = -r
		}
		return r < 0
	})
	return out
}

func matchesCategory(n Note, category string) bool {
	switch category {
	case "", CategoryAll:
		return true
	case CategoryStarred:
		return n.Starred
	case string(PriorityHigh), string(PriorityMedium), string(PriorityLow):
		return string(n.Priority) == category
	}
	return true
}

func matchesQuery(n Note, query string) bool {
	if strings.Contains(strings.ToLower(n.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Description), query) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// baseComparator returns the un-inverted comparator for the sort key: title
// is lexicographic ascending, priority is rank descending, date (the
// default) is newest-first with missing timestamps treated as epoch zero.
func baseComparator(key SortKey) func(a, b Note) int {
	switch key {
	case SortByTitle:
		col := collate.New(language.Und)
		return func(a, b Note) int {
			return col.CompareString(a.Title, b.Title)
		}
	case SortByPriority:
		return func(a, b Note) int {
			return b.Priority.Rank() - a.Priority.Rank()
		}
	default:
		return func(a, b Note) int {
			switch {
			case a.CreatedAt.After(b.CreatedAt):
				return -1
			case b.CreatedAt.After(a.CreatedAt):
				return 1
			}
			return 0
		}
	}
}
