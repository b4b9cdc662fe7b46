// Package feed filters, searches and summarizes a snapshot of posts for
// display. Every function is pure: the snapshot is never modified.
package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/d60-Lab/zenith-cms/internal/model"
)

// AllCategories disables category filtering.
const AllCategories = "All"

// State is the client's view state: the last fetched snapshot plus the
// active filter and search query.
type State struct {
	Snapshot       []model.Post
	ActiveCategory string
	SearchQuery    string
}

// NewState returns a state with no filter and no search.
func NewState(snapshot []model.Post) State {
	return State{Snapshot: snapshot, ActiveCategory: AllCategories}
}

func (s State) WithSnapshot(snapshot []model.Post) State {
	s.Snapshot = snapshot
	return s
}

func (s State) WithCategory(category string) State {
	s.ActiveCategory = category
	return s
}

func (s State) WithSearch(query string) State {
	s.SearchQuery = query
	return s
}

// VisiblePosts returns the posts that pass both the category and the search
// predicate, in snapshot order.
func VisiblePosts(s State) []model.Post {
	query := strings.ToLower(strings.TrimSpace(s.SearchQuery))
	out := make([]model.Post, 0, len(s.Snapshot))
	for _, p := range s.Snapshot {
		if matchesCategory(p, s.ActiveCategory) && matchesQuery(p, query) {
			out = append(out, p)
		}
	}
	return out
}

func matchesCategory(p model.Post, category string) bool {
	return category == AllCategories || p.Category == category
}

// matchesQuery expects query already trimmed and lower-cased.
func matchesQuery(p model.Post, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Content), query) ||
		strings.Contains(strings.ToLower(p.Author), query)
}

// StatusSummary describes how many posts are shown out of the total.
func StatusSummary(shown, total int) string {
	switch {
	case total == 0:
		return ""
	case shown == total && total == 1:
		return "1 post"
	case shown == total:
		return fmt.Sprintf("%d posts", total)
	default:
		return fmt.Sprintf("Showing %d of %d posts", shown, total)
	}
}

// Categories returns "All" followed by the distinct categories of the
// snapshot in lexical order.
func Categories(snapshot []model.Post) []string {
	seen := make(map[string]struct{}, len(snapshot))
	cats := make([]string, 0, len(snapshot))
	for _, p := range snapshot {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		cats = append(cats, p.Category)
	}
	sort.Strings(cats)
	return append([]string{AllCategories}, cats...)
}
