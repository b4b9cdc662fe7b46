package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/internal/api/handler"
	"github.com/d60-Lab/zenith-cms/internal/api/router"
	"github.com/d60-Lab/zenith-cms/internal/controller"
	"github.com/d60-Lab/zenith-cms/internal/repository"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/internal/testutil"
)

var _ controller.API = (*Client)(nil)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := service.NewPostService(repository.NewGormPostRepository(testutil.NewSQLiteDB(t)))
	cfg := &config.Config{Server: config.ServerConfig{BodyLimit: 1 << 20}}
	srv := httptest.NewServer(router.Setup(cfg, handler.NewHandler(svc), nil))
	t.Cleanup(srv.Close)
	return srv
}

func strPtr(s string) *string { return &s }

func TestClient_RoundTrip(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/", WithTimeout(5*time.Second))
	ctx := context.Background()

	posts, err := c.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	id, err := c.Create(ctx, service.CreatePostInput{Title: "Hi", Content: "There", Category: "Tech"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.Update(ctx, id, service.UpdatePostInput{Content: strPtr("Updated body")}))

	post, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hi", post.Title)
	assert.Equal(t, "Updated body", post.Content)
	assert.Equal(t, "Tech", post.Category)
	assert.NotNil(t, post.UpdatedAt)

	require.NoError(t, c.Delete(ctx, id))
	posts, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestClient_APIErrors(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Create(ctx, service.CreatePostInput{Title: "no body"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Title and content are required", apiErr.Message)

	err = c.Delete(ctx, "missing")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Post not found", err.Error())

	_, err = c.Get(ctx, "a/b c")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_UnreadableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Request failed (502)", apiErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).List(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
}

func TestClient_DrivesController(t *testing.T) {
	srv := newServer(t)
	var notices []controller.Notice
	ctrl := controller.New(New(srv.URL), controller.NotifierFunc(func(n controller.Notice) {
		notices = append(notices, n)
	}))
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	ctrl.StartCreate()
	require.NoError(t, ctrl.UpdateDraft(func(d *controller.Draft) {
		d.Title = "From controller"
		d.Content = "body"
	}))
	require.NoError(t, ctrl.Submit(ctx))

	snap := ctrl.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "From controller", snap[0].Title)
	assert.Equal(t, "Anonymous", snap[0].Author)
	require.NotEmpty(t, notices)
	assert.Equal(t, "Post published!", notices[len(notices)-1].Message)
}
