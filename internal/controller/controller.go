// Package controller maps user intents (open, edit, delete, submit, search,
// filter) onto the posts API and keeps the local snapshot in sync with the
// server by re-fetching the full list after every successful mutation.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/d60-Lab/zenith-cms/internal/feed"
	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/service"
)

var (
	ErrNoSession       = errors.New("no edit session is open")
	ErrNoPendingDelete = errors.New("no delete is awaiting confirmation")
	ErrBusy            = errors.New("a request for this action is already in flight")
)

const (
	msgRequired     = "Title and content are required."
	msgPublished    = "Post published!"
	msgUpdated      = "Post updated successfully!"
	msgDeleted      = "Post deleted."
	msgLoadFailedTo = "Failed to load posts: "
)

// API is the subset of the posts REST API the controller drives.
type API interface {
	List(ctx context.Context) ([]model.Post, error)
	Create(ctx context.Context, in service.CreatePostInput) (string, error)
	Update(ctx context.Context, id string, in service.UpdatePostInput) error
	Delete(ctx context.Context, id string) error
}

// LoadStatus is the state of the most recent list fetch.
type LoadStatus int

const (
	LoadIdle LoadStatus = iota
	LoadLoading
	LoadReady
	LoadFailed
)

// Phase is the state of the edit session.
type Phase int

const (
	PhaseEditing Phase = iota + 1
	PhaseSubmitting
)

// Draft holds the editable fields of a post.
type Draft struct {
	Title    string
	Category string
	Author   string
	Content  string
}

// EditSession is an in-progress create (ID == "") or update.
type EditSession struct {
	ID    string
	Draft Draft
	Phase Phase
	// Err is the message of the last failed submit, shown inline.
	Err string

	gen uint64
}

// IsCreate reports whether the session creates a new post.
func (s EditSession) IsCreate() bool { return s.ID == "" }

// Controller is safe for concurrent use. Network calls are made without
// holding the lock so filtering stays responsive while a save is in flight.
type Controller struct {
	api    API
	notify Notifier

	mu            sync.Mutex
	state         feed.State
	status        LoadStatus
	loadErr       string
	loadSeq       uint64
	session       *EditSession
	sessionGen    uint64
	pendingDelete string
	deleting      bool
	lastStale     error
}

func New(api API, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Controller{
		api:    api,
		notify: notifier,
		state:  feed.NewState(nil),
	}
}

// Load replaces the snapshot with a fresh list. On failure the snapshot is
// emptied and the controller enters LoadFailed so callers never show a stale
// or frozen list. Only the most recently started load is applied.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.status = LoadLoading
	c.mu.Unlock()

	posts, err := c.api.List(ctx)

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = c.state.WithSnapshot(nil)
		c.status = LoadFailed
		c.loadErr = err.Error()
		c.mu.Unlock()
		c.notify.Notify(Notice{Kind: NoticeError, Message: msgLoadFailedTo + err.Error()})
		return err
	}
	c.state = c.state.WithSnapshot(posts)
	c.status = LoadReady
	c.loadErr = ""
	c.mu.Unlock()
	return nil
}

// LoadState returns the load status and, when failed, its message.
func (c *Controller) LoadState() (LoadStatus, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.loadErr
}

func (c *Controller) SetSearch(query string) feed.View {
	c.mu.Lock()
	c.state = c.state.WithSearch(query)
	c.mu.Unlock()
	return c.View()
}

func (c *Controller) SetCategory(category string) feed.View {
	c.mu.Lock()
	c.state = c.state.WithCategory(category)
	c.mu.Unlock()
	return c.View()
}

// View recomputes the visible posts and summary for the current state.
func (c *Controller) View() feed.View {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	return feed.Render(st)
}

// Snapshot returns a copy of the last fetched list.
func (c *Controller) Snapshot() []model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Post(nil), c.state.Snapshot...)
}

// Open returns the post with id from the snapshot.
func (c *Controller) Open(id string) (model.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.find(id)
}

func (c *Controller) find(id string) (model.Post, bool) {
	for _, p := range c.state.Snapshot {
		if p.ID == id {
			return p, true
		}
	}
	return model.Post{}, false
}

// StartCreate opens an empty edit session, replacing any open one.
func (c *Controller) StartCreate() EditSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionGen++
	c.session = &EditSession{
		Draft: Draft{Category: model.DefaultCategory},
		Phase: PhaseEditing,
		gen:   c.sessionGen,
	}
	return *c.session
}

// StartEdit opens a session for the snapshot post with id. If the post is no
// longer in the snapshot nothing happens and false is returned.
func (c *Controller) StartEdit(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	post, ok := c.find(id)
	if !ok {
		c.lastStale = service.ErrStaleSnapshot
		return false
	}
	c.sessionGen++
	c.session = &EditSession{
		ID: id,
		Draft: Draft{
			Title:    post.Title,
			Category: orDefault(post.Category, model.DefaultCategory),
			Author:   post.Author,
			Content:  post.Content,
		},
		Phase: PhaseEditing,
		gen:   c.sessionGen,
	}
	return true
}

// LastStale returns ErrStaleSnapshot if the most recent StartEdit targeted a
// post missing from the snapshot, then clears it.
func (c *Controller) LastStale() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.lastStale
	c.lastStale = nil
	return err
}

// Session returns a copy of the open edit session.
func (c *Controller) Session() (EditSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return EditSession{}, false
	}
	return *c.session, true
}

// UpdateDraft edits the draft of the open session. It fails while a submit
// is in flight.
func (c *Controller) UpdateDraft(fn func(*Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}
	if c.session.Phase != PhaseEditing {
		return ErrBusy
	}
	fn(&c.session.Draft)
	return nil
}

// CloseEditor discards the open session. A submit already in flight still
// completes, but its outcome no longer touches any session.
func (c *Controller) CloseEditor() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// Submit validates the draft locally and sends it. On success the session is
// closed and the snapshot reloaded; on failure the session stays open with
// Err set.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if s.Phase != PhaseEditing {
		c.mu.Unlock()
		return ErrBusy
	}
	title := strings.TrimSpace(s.Draft.Title)
	content := strings.TrimSpace(s.Draft.Content)
	if title == "" || content == "" {
		s.Err = msgRequired
		c.mu.Unlock()
		c.notify.Notify(Notice{Kind: NoticeError, Message: msgRequired})
		return service.NewValidationError("title", msgRequired)
	}
	author := strings.TrimSpace(s.Draft.Author)
	if author == "" {
		author = model.DefaultAuthor
	}
	category := s.Draft.Category
	id, gen := s.ID, s.gen
	s.Phase = PhaseSubmitting
	s.Err = ""
	c.mu.Unlock()

	var (
		err     error
		success string
	)
	if id != "" {
		err = c.api.Update(ctx, id, service.UpdatePostInput{
			Title:    &title,
			Category: &category,
			Author:   &author,
			Content:  &content,
		})
		success = msgUpdated
	} else {
		_, err = c.api.Create(ctx, service.CreatePostInput{
			Title:    title,
			Category: category,
			Author:   author,
			Content:  content,
		})
		success = msgPublished
	}

	c.mu.Lock()
	current := c.session
	stillOpen := current != nil && current.gen == gen
	if err != nil {
		if stillOpen {
			current.Phase = PhaseEditing
			current.Err = err.Error()
		}
		c.mu.Unlock()
		c.notify.Notify(Notice{Kind: NoticeError, Message: err.Error()})
		return err
	}
	if stillOpen {
		c.session = nil
	}
	c.mu.Unlock()

	c.notify.Notify(Notice{Kind: NoticeSuccess, Message: success})
	_ = c.Load(ctx)
	return nil
}

// RequestDelete asks for confirmation before deleting id.
func (c *Controller) RequestDelete(id string) {
	c.mu.Lock()
	c.pendingDelete = id
	c.mu.Unlock()
}

// PendingDelete returns the id awaiting confirmation.
func (c *Controller) PendingDelete() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingDelete, c.pendingDelete != ""
}

// CancelDelete drops the pending target without side effects.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	if !c.deleting {
		c.pendingDelete = ""
	}
	c.mu.Unlock()
}

// ConfirmDelete deletes the pending target. The target is cleared whether
// or not the call succeeds, unless another target was requested meanwhile.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	id := c.pendingDelete
	if id == "" {
		c.mu.Unlock()
		return ErrNoPendingDelete
	}
	if c.deleting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.deleting = true
	c.mu.Unlock()

	err := c.api.Delete(ctx, id)

	c.mu.Lock()
	c.deleting = false
	// 删除进行中又选中了别的文章时保留新的目标
	if c.pendingDelete == id {
		c.pendingDelete = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.notify.Notify(Notice{Kind: NoticeError, Message: err.Error()})
		return err
	}
	c.notify.Notify(Notice{Kind: NoticeSuccess, Message: msgDeleted})
	_ = c.Load(ctx)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
