package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/zenith-cms/internal/controller"
	"github.com/d60-Lab/zenith-cms/internal/feed"
)

// ErrPostNotFound is returned when an id is not in the fetched list.
var ErrPostNotFound = errors.New("post not found")

type ListOptions struct {
	*RootOptions
	Category string
	Search   string
}

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(opts.RootOptions, cmd)
			if err := load(cmd.Context(), ctrl); err != nil {
				return err
			}
			ctrl.SetCategory(opts.Category)
			view := ctrl.SetSearch(opts.Search)
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), view.Posts)
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", feed.AllCategories, "only show this category")
	cmd.Flags().StringVarP(&opts.Search, "search", "q", "", "case-insensitive match on title, content or author")

	return cmd
}

func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(rootOpts, cmd)
			if err := load(cmd.Context(), ctrl); err != nil {
				return err
			}
			post, ok := ctrl.Open(args[0])
			if !ok {
				return ErrPostNotFound
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), post)
			}
			printPost(cmd.OutOrStdout(), post)
			return nil
		},
	}
}

// DraftOptions are the post fields accepted by create and edit.
type DraftOptions struct {
	*RootOptions
	Title       string
	Category    string
	Author      string
	Content     string
	ContentFile string
}

func (o *DraftOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Title, "title", "t", "", "post title")
	cmd.Flags().StringVarP(&o.Category, "category", "c", "", "post category (default General)")
	cmd.Flags().StringVarP(&o.Author, "author", "a", "", "author name (default Anonymous)")
	cmd.Flags().StringVar(&o.Content, "content", "", "post body")
	cmd.Flags().StringVarP(&o.ContentFile, "content-file", "f", "", "read the body from a file, - for stdin")
}

// apply copies the flags the user actually set onto d.
func (o *DraftOptions) apply(cmd *cobra.Command, d *controller.Draft) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		d.Title = o.Title
	}
	if flags.Changed("category") {
		d.Category = o.Category
	}
	if flags.Changed("author") {
		d.Author = o.Author
	}
	if flags.Changed("content") {
		d.Content = o.Content
	}
	if o.ContentFile != "" {
		body, err := readContent(cmd.InOrStdin(), o.ContentFile)
		if err != nil {
			return err
		}
		d.Content = body
	}
	return nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(b), nil
}

func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DraftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new post",
		Example: `  zenithctl create --title "Hello" --content "First post"
  zenithctl create -t "Notes" -c Tech -f notes.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(opts.RootOptions, cmd)
			ctrl.StartCreate()
			var applyErr error
			if err := ctrl.UpdateDraft(func(d *controller.Draft) { applyErr = opts.apply(cmd, d) }); err != nil {
				return err
			}
			if applyErr != nil {
				return applyErr
			}
			return submit(cmd.Context(), ctrl)
		},
	}
	opts.bind(cmd)

	return cmd
}

func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DraftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an existing post; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(opts.RootOptions, cmd)
			if err := load(cmd.Context(), ctrl); err != nil {
				return err
			}
			if !ctrl.StartEdit(args[0]) {
				return ErrPostNotFound
			}
			var applyErr error
			if err := ctrl.UpdateDraft(func(d *controller.Draft) { applyErr = opts.apply(cmd, d) }); err != nil {
				return err
			}
			if applyErr != nil {
				return applyErr
			}
			return submit(cmd.Context(), ctrl)
		},
	}
	opts.bind(cmd)

	return cmd
}

// load fetches the snapshot; failures were already printed as a notice.
func load(ctx context.Context, ctrl *controller.Controller) error {
	if err := ctrl.Load(ctx); err != nil {
		return errSilent{err}
	}
	return nil
}

// submit sends the open session. The controller has already printed the
// failure notice, so the returned error only sets the exit status.
func submit(ctx context.Context, ctrl *controller.Controller) error {
	if err := ctrl.Submit(ctx); err != nil {
		return errSilent{err}
	}
	return nil
}

type DeleteOptions struct {
	*RootOptions
	Yes bool
}

func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(opts.RootOptions, cmd)
			ctrl.RequestDelete(args[0])
			if !opts.Yes && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), args[0]) {
				ctrl.CancelDelete()
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
				return nil
			}
			if err := ctrl.ConfirmDelete(cmd.Context()); err != nil {
				return errSilent{err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func confirm(in io.Reader, out io.Writer, id string) bool {
	fmt.Fprintf(out, "Delete post %s? This cannot be undone. [y/N] ", id)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// errSilent marks an error the user has already been told about.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }

// IsReported reports whether err was already shown as a notice.
func IsReported(err error) bool {
	var s errSilent
	return errors.As(err, &s)
}
