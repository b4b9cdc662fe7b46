package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/service"
)

// fakeAPI is an in-memory posts API. Setting gate blocks the next mutation
// until the channel is closed.
type fakeAPI struct {
	mu      sync.Mutex
	posts   []model.Post
	nextID  int
	listErr error
	mutErr  error
	gate    chan struct{}
	calls   []string
	now     time.Time
}

func newFakeAPI(posts ...model.Post) *fakeAPI {
	return &fakeAPI{posts: posts, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) wait() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeAPI) List(context.Context) ([]model.Post, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Post(nil), f.posts...), nil
}

func (f *fakeAPI) Create(_ context.Context, in service.CreatePostInput) (string, error) {
	f.record("create")
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return "", f.mutErr
	}
	f.nextID++
	f.now = f.now.Add(time.Minute)
	p := model.Post{
		ID:        fmt.Sprintf("p%d", f.nextID),
		Title:     in.Title,
		Category:  in.Category,
		Author:    in.Author,
		Content:   in.Content,
		CreatedAt: f.now,
	}
	f.posts = append([]model.Post{p}, f.posts...)
	return p.ID, nil
}

func (f *fakeAPI) Update(_ context.Context, id string, in service.UpdatePostInput) error {
	f.record("update")
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	for i := range f.posts {
		if f.posts[i].ID == id {
			if in.Title != nil {
				f.posts[i].Title = *in.Title
			}
			if in.Content != nil {
				f.posts[i].Content = *in.Content
			}
			return nil
		}
	}
	return errors.New("Post not found")
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.record("delete")
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	for i := range f.posts {
		if f.posts[i].ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return errors.New("Post not found")
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func seed() []model.Post {
	return []model.Post{
		{ID: "b", Title: "Beta", Category: "Tech", Author: "Ann", Content: "second"},
		{ID: "a", Title: "Alpha", Category: "", Author: "Bob", Content: "first"},
	}
}

func TestLoad_ReplacesSnapshot(t *testing.T) {
	api := newFakeAPI(seed()...)
	c := New(api, nil)

	require.NoError(t, c.Load(context.Background()))
	status, msg := c.LoadState()
	assert.Equal(t, LoadReady, status)
	assert.Empty(t, msg)
	assert.Len(t, c.Snapshot(), 2)
	assert.Equal(t, "2 posts", c.View().Summary)
}

func TestLoad_FailureEmptiesSnapshot(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	require.NoError(t, c.Load(context.Background()))

	api.listErr = errors.New("Failed to fetch posts")
	require.Error(t, c.Load(context.Background()))

	status, msg := c.LoadState()
	assert.Equal(t, LoadFailed, status)
	assert.Equal(t, "Failed to fetch posts", msg)
	assert.Empty(t, c.Snapshot())
	assert.True(t, c.View().Empty)
	assert.Equal(t, Notice{Kind: NoticeError, Message: "Failed to load posts: Failed to fetch posts"}, rec.last())
}

func TestSearchAndCategory(t *testing.T) {
	c := New(newFakeAPI(seed()...), nil)
	require.NoError(t, c.Load(context.Background()))

	v := c.SetCategory("Tech")
	assert.Len(t, v.Cards, 1)
	assert.Equal(t, "Showing 1 of 2 posts", v.Summary)

	c.SetCategory("All")
	v = c.SetSearch("bob")
	require.Len(t, v.Cards, 1)
	assert.Equal(t, "a", v.Cards[0].ID)
	assert.Equal(t, "General", v.Cards[0].Tag)
}

func TestOpen(t *testing.T) {
	c := New(newFakeAPI(seed()...), nil)
	require.NoError(t, c.Load(context.Background()))

	p, ok := c.Open("a")
	assert.True(t, ok)
	assert.Equal(t, "Alpha", p.Title)

	_, ok = c.Open("zzz")
	assert.False(t, ok)
}

func TestStartEdit_StaleIDIsNoop(t *testing.T) {
	c := New(newFakeAPI(seed()...), nil)
	require.NoError(t, c.Load(context.Background()))

	assert.False(t, c.StartEdit("gone"))
	_, open := c.Session()
	assert.False(t, open)
	assert.ErrorIs(t, c.LastStale(), service.ErrStaleSnapshot)
	assert.NoError(t, c.LastStale())

	require.True(t, c.StartEdit("a"))
	s, open := c.Session()
	require.True(t, open)
	assert.Equal(t, "a", s.ID)
	assert.Equal(t, "Alpha", s.Draft.Title)
	assert.Equal(t, model.DefaultCategory, s.Draft.Category)
	assert.Equal(t, PhaseEditing, s.Phase)
	assert.False(t, s.IsCreate())
}

func TestSubmit_CreateSuccess(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	s := c.StartCreate()
	assert.True(t, s.IsCreate())
	require.NoError(t, c.UpdateDraft(func(d *Draft) {
		d.Title = " New "
		d.Content = "Body"
		d.Author = "  "
	}))
	require.NoError(t, c.Submit(ctx))

	assert.Equal(t, Notice{Kind: NoticeSuccess, Message: "Post published!"}, rec.last())
	_, open := c.Session()
	assert.False(t, open)

	snap := c.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "New", snap[0].Title)
	assert.Equal(t, model.DefaultAuthor, snap[0].Author)
	assert.Equal(t, model.DefaultCategory, snap[0].Category)
	assert.Equal(t, 2, api.callCount("list"))
}

func TestSubmit_BlankFieldsBlocked(t *testing.T) {
	api := newFakeAPI()
	rec := &recorder{}
	c := New(api, rec)

	c.StartCreate()
	require.NoError(t, c.UpdateDraft(func(d *Draft) { d.Title = "Only title"; d.Content = "   " }))
	err := c.Submit(context.Background())
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, Notice{Kind: NoticeError, Message: "Title and content are required."}, rec.last())

	s, open := c.Session()
	require.True(t, open)
	assert.Equal(t, PhaseEditing, s.Phase)
	assert.Equal(t, "Title and content are required.", s.Err)
	assert.Zero(t, api.callCount("create"))
}

func TestSubmit_UpdateSuccess(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.True(t, c.StartEdit("b"))
	require.NoError(t, c.UpdateDraft(func(d *Draft) { d.Title = "Beta v2" }))
	require.NoError(t, c.Submit(ctx))

	assert.Equal(t, "Post updated successfully!", rec.last().Message)
	p, ok := c.Open("b")
	require.True(t, ok)
	assert.Equal(t, "Beta v2", p.Title)
}

func TestSubmit_FailureKeepsSessionOpen(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	api.mutErr = errors.New("Failed to update post")
	require.True(t, c.StartEdit("b"))
	require.Error(t, c.Submit(ctx))

	s, open := c.Session()
	require.True(t, open)
	assert.Equal(t, PhaseEditing, s.Phase)
	assert.Equal(t, "Failed to update post", s.Err)
	assert.Equal(t, Notice{Kind: NoticeError, Message: "Failed to update post"}, rec.last())
	assert.Equal(t, 1, api.callCount("list"), "no reload after a failed mutation")

	api.mutErr = nil
	require.NoError(t, c.Submit(ctx))
	_, open = c.Session()
	assert.False(t, open)
}

func TestSubmit_InFlightRejectsSecondSubmitAndEdits(t *testing.T) {
	api := newFakeAPI()
	api.gate = make(chan struct{})
	c := New(api, nil)
	ctx := context.Background()

	c.StartCreate()
	require.NoError(t, c.UpdateDraft(func(d *Draft) { d.Title = "T"; d.Content = "C" }))

	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx) }()

	require.Eventually(t, func() bool {
		s, ok := c.Session()
		return ok && s.Phase == PhaseSubmitting
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.Submit(ctx), ErrBusy)
	assert.ErrorIs(t, c.UpdateDraft(func(d *Draft) { d.Title = "X" }), ErrBusy)

	close(api.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.callCount("create"))
}

func TestSubmit_LateResponseDoesNotTouchNewSession(t *testing.T) {
	api := newFakeAPI(seed()...)
	api.gate = make(chan struct{})
	c := New(api, nil)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.True(t, c.StartEdit("a"))
	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx) }()
	require.Eventually(t, func() bool {
		return api.callCount("update") == 1
	}, time.Second, 5*time.Millisecond)

	// user abandons the edit and starts a new post while the update is pending
	c.CloseEditor()
	c.StartCreate()
	require.NoError(t, c.UpdateDraft(func(d *Draft) { d.Title = "draft" }))

	close(api.gate)
	require.NoError(t, <-done)

	s, open := c.Session()
	require.True(t, open, "the newer session survives")
	assert.True(t, s.IsCreate())
	assert.Equal(t, "draft", s.Draft.Title)
	assert.Equal(t, PhaseEditing, s.Phase)
	assert.Equal(t, 2, api.callCount("list"), "successful mutation still reloads")
}

func TestDelete_ConfirmFlow(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	assert.ErrorIs(t, c.ConfirmDelete(ctx), ErrNoPendingDelete)

	c.RequestDelete("a")
	id, ok := c.PendingDelete()
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	c.CancelDelete()
	_, ok = c.PendingDelete()
	assert.False(t, ok)
	assert.Zero(t, api.callCount("delete"), "cancel makes no call")

	c.RequestDelete("a")
	require.NoError(t, c.ConfirmDelete(ctx))
	assert.Equal(t, Notice{Kind: NoticeSuccess, Message: "Post deleted."}, rec.last())
	_, ok = c.Open("a")
	assert.False(t, ok)
	_, ok = c.PendingDelete()
	assert.False(t, ok)
}

func TestDelete_FailureClearsTarget(t *testing.T) {
	api := newFakeAPI(seed()...)
	rec := &recorder{}
	c := New(api, rec)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	api.mutErr = errors.New("Failed to delete post")
	c.RequestDelete("a")
	require.Error(t, c.ConfirmDelete(ctx))

	assert.Equal(t, NoticeError, rec.last().Kind)
	_, ok := c.PendingDelete()
	assert.False(t, ok)
	_, ok = c.Open("a")
	assert.True(t, ok, "post stays after a failed delete")
}

func TestDelete_InFlightRejectsSecondConfirm(t *testing.T) {
	api := newFakeAPI(seed()...)
	api.gate = make(chan struct{})
	c := New(api, nil)
	ctx := context.Background()

	c.RequestDelete("a")
	done := make(chan error, 1)
	go func() { done <- c.ConfirmDelete(ctx) }()
	require.Eventually(t, func() bool { return api.callCount("delete") == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.ConfirmDelete(ctx), ErrBusy)

	close(api.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.callCount("delete"))
}

func TestDelete_RequestDuringFlightIsKept(t *testing.T) {
	api := newFakeAPI(seed()...)
	api.gate = make(chan struct{})
	c := New(api, nil)
	ctx := context.Background()

	c.RequestDelete("a")
	done := make(chan error, 1)
	go func() { done <- c.ConfirmDelete(ctx) }()
	require.Eventually(t, func() bool { return api.callCount("delete") == 1 }, time.Second, 5*time.Millisecond)

	c.RequestDelete("b")
	close(api.gate)
	require.NoError(t, <-done)

	id, ok := c.PendingDelete()
	assert.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestNotifierFunc(t *testing.T) {
	var got Notice
	NotifierFunc(func(n Notice) { got = n }).Notify(Notice{Kind: NoticeInfo, Message: "hi"})
	assert.Equal(t, "hi", got.Message)
}
