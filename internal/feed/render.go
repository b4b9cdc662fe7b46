package feed

import (
	"strings"
	"time"

	"github.com/d60-Lab/zenith-cms/internal/model"
)

const excerptRunes = 160

// Card is the display form of one post in the grid.
type Card struct {
	ID      string
	Tag     string
	Title   string
	Excerpt string
	Byline  string
	Date    string
	Updated string
}

// View is everything needed to draw the post grid.
type View struct {
	Cards          []Card
	Posts          []model.Post
	Summary        string
	Empty          bool
	Categories     []string
	ActiveCategory string
	SearchQuery    string
}

// Render computes the view for s. Calling it twice on the same state yields
// the same view.
func Render(s State) View {
	visible := VisiblePosts(s)
	cards := make([]Card, len(visible))
	for i, p := range visible {
		cards[i] = NewCard(p)
	}
	return View{
		Cards:          cards,
		Posts:          visible,
		Summary:        StatusSummary(len(visible), len(s.Snapshot)),
		Empty:          len(visible) == 0,
		Categories:     Categories(s.Snapshot),
		ActiveCategory: s.ActiveCategory,
		SearchQuery:    s.SearchQuery,
	}
}

func NewCard(p model.Post) Card {
	c := Card{
		ID:      p.ID,
		Tag:     orDefault(p.Category, model.DefaultCategory),
		Title:   p.Title,
		Excerpt: Excerpt(p.Content),
		Date:    FormatDate(p.CreatedAt),
	}
	c.Byline = "By " + orDefault(p.Author, model.DefaultAuthor) + " · " + c.Date
	if p.Edited() {
		c.Updated = FormatDate(*p.UpdatedAt)
	}
	return c
}

// Excerpt flattens newlines and cuts content to 160 characters, adding an
// ellipsis when something was cut.
func Excerpt(content string) string {
	runes := []rune(content)
	cut := len(runes) > excerptRunes
	if cut {
		runes = runes[:excerptRunes]
	}
	out := strings.ReplaceAll(string(runes), "\n", " ")
	if cut {
		out += "…"
	}
	return out
}

// FormatDate renders t like "Jan 2, 2006". The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
