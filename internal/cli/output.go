package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/d60-Lab/zenith-cms/internal/controller"
	"github.com/d60-Lab/zenith-cms/internal/feed"
	"github.com/d60-Lab/zenith-cms/internal/model"
)

type stderrNotifier struct {
	w io.Writer
}

func newStderrNotifier(w io.Writer) controller.Notifier {
	return stderrNotifier{w: w}
}

func (n stderrNotifier) Notify(notice controller.Notice) {
	fmt.Fprintf(n.w, "[%s] %s\n", notice.Kind, notice.Message)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printView(w io.Writer, view feed.View) {
	if view.Summary != "" {
		fmt.Fprintln(w, view.Summary)
	}
	if view.Empty {
		fmt.Fprintln(w, "No posts found.")
		return
	}
	for _, card := range view.Cards {
		fmt.Fprintf(w, "\n%s  [%s] %s\n", card.ID, card.Tag, card.Title)
		fmt.Fprintf(w, "    %s\n", card.Byline)
		if card.Excerpt != "" {
			fmt.Fprintf(w, "    %s\n", card.Excerpt)
		}
	}
}

func printPost(w io.Writer, post model.Post) {
	card := feed.NewCard(post)
	fmt.Fprintf(w, "[%s] %s\n", card.Tag, post.Title)
	meta := card.Byline
	if card.Updated != "" {
		meta += " · Updated " + card.Updated
	}
	fmt.Fprintln(w, meta)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, post.Content)
}
