package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/internal/api/handler"
	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/repository"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/internal/testutil"
	"github.com/d60-Lab/zenith-cms/internal/web"
	"github.com/d60-Lab/zenith-cms/pkg/response"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{BodyLimit: 1 << 20},
		RateLimit: config.RateLimitConfig{RPS: 0},
		Swagger:   config.SwaggerConfig{Enabled: true},
	}
}

func setupEngine(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := testutil.NewStepClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), time.Second)
	repo := repository.NewGormPostRepository(testutil.NewSQLiteDB(t))
	svc := service.NewPostService(repo, service.WithClock(clock.Now))
	tmpl, err := web.NewTemplates()
	require.NoError(t, err)
	return Setup(cfg, handler.NewHandler(svc), web.NewPages(tmpl, svc))
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostLifecycle(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodPost, "/api/posts", `{"title":"Hello","content":"World"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created response.CreatedBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Post created!", created.Message)
	require.NotEmpty(t, created.ID)

	w = request(r, http.MethodGet, "/api/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var post model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "General", post.Category)
	assert.Equal(t, "Anonymous", post.Author)
	assert.Nil(t, post.UpdatedAt)
	assert.Contains(t, w.Body.String(), `"updatedAt":null`)

	w = request(r, http.MethodPatch, "/api/posts/"+created.ID, `{"author":"Ada"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Post updated!"}`, w.Body.String())

	w = request(r, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var posts []model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Ada", posts[0].Author)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, "World", posts[0].Content)
	require.NotNil(t, posts[0].UpdatedAt)
	assert.True(t, posts[0].UpdatedAt.After(posts[0].CreatedAt))

	w = request(r, http.MethodDelete, "/api/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Post deleted!"}`, w.Body.String())

	w = request(r, http.MethodDelete, "/api/posts/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())

	w = request(r, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func getPost(t *testing.T, r http.Handler, id string) model.Post {
	t.Helper()
	w := request(r, http.MethodGet, "/api/posts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var post model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	return post
}

func createPost(t *testing.T, r http.Handler, body string) string {
	t.Helper()
	w := request(r, http.MethodPost, "/api/posts", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created response.CreatedBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created.ID
}

func TestCategoryOnlyUpdate(t *testing.T) {
	r := setupEngine(t, testConfig())
	id := createPost(t, r, `{"title":"T","category":"Tech","author":"Rob","content":"C"}`)
	before := getPost(t, r, id)

	w := request(r, http.MethodPatch, "/api/posts/"+id, `{"category":"X"}`)
	require.Equal(t, http.StatusOK, w.Code)

	after := getPost(t, r, id)
	assert.Equal(t, "X", after.Category)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, before.Author, after.Author)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	require.NotNil(t, after.UpdatedAt)
	assert.True(t, after.UpdatedAt.After(after.CreatedAt))
}

func TestEmptyPatchBody(t *testing.T) {
	r := setupEngine(t, testConfig())
	id := createPost(t, r, `{"title":"T","content":"C"}`)

	w := request(r, http.MethodPatch, "/api/posts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Post updated!"}`, w.Body.String())
	post := getPost(t, r, id)
	assert.Equal(t, "T", post.Title)
	assert.NotNil(t, post.UpdatedAt)

	w = request(r, http.MethodPatch, "/api/posts/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())

	w = request(r, http.MethodPatch, "/api/posts/"+id, "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateValidation(t *testing.T) {
	r := setupEngine(t, testConfig())

	for _, body := range []string{`{}`, `{"title":"  ","content":"x"}`, `{"title":"x"}`} {
		w := request(r, http.MethodPost, "/api/posts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Title and content are required"}`, w.Body.String())
	}

	w := request(r, http.MethodGet, "/api/posts", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestMalformedIDIsNotFound(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodGet, "/api/posts/not-a-real-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = request(r, http.MethodPatch, "/api/posts/not-a-real-id", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListNewestFirst(t *testing.T) {
	r := setupEngine(t, testConfig())

	for i := 1; i <= 3; i++ {
		w := request(r, http.MethodPost, "/api/posts", fmt.Sprintf(`{"title":"post %d","content":"c"}`, i))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := request(r, http.MethodGet, "/api/posts", "")
	var posts []model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, "post 3", posts[0].Title)
	assert.Equal(t, "post 1", posts[2].Title)
}

func TestHealthAndRequestID(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	r := setupEngine(t, cfg)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "").Code)
	w := request(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BodyLimit = 64
	r := setupEngine(t, cfg)

	body := fmt.Sprintf(`{"title":"t","content":%q}`, strings.Repeat("x", 256))
	w := request(r, http.MethodPost, "/api/posts", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}

func TestWebPages(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodPost, "/api/posts", `{"title":"Gopher tips","category":"Tech","author":"Rob","content":"Use interfaces."}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created response.CreatedBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	w = request(r, http.MethodPost, "/api/posts", `{"title":"Pasta","category":"Food","content":"Boil water."}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = request(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Gopher tips")
	assert.Contains(t, w.Body.String(), "Pasta")
	assert.Contains(t, w.Body.String(), "2 posts")

	w = request(r, http.MethodGet, "/?category=Tech", "")
	assert.Contains(t, w.Body.String(), "Gopher tips")
	assert.NotContains(t, w.Body.String(), "Pasta")
	assert.Contains(t, w.Body.String(), "Showing 1 of 2 posts")

	w = request(r, http.MethodGet, "/?q=ROB", "")
	assert.Contains(t, w.Body.String(), "Gopher tips")
	assert.NotContains(t, w.Body.String(), "Boil water")

	w = request(r, http.MethodGet, "/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Use interfaces.")
	assert.NotContains(t, w.Body.String(), "Updated ")

	w = request(r, http.MethodPatch, "/api/posts/"+created.ID, `{"content":"Accept interfaces."}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = request(r, http.MethodGet, "/posts/"+created.ID, "")
	assert.Contains(t, w.Body.String(), "Updated Jun 1, 2024")

	w = request(r, http.MethodGet, "/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Post not found")
}

func TestUnknownRoutes(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	w = request(r, http.MethodGet, "/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestSwaggerDocServed(t *testing.T) {
	r := setupEngine(t, testConfig())

	w := request(r, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/posts")
}

// brokenRepository 模拟存储不可用
type brokenRepository struct{ err error }

func (b brokenRepository) Insert(context.Context, *model.Post) (string, error) { return "", b.err }
func (b brokenRepository) FindAll(context.Context) ([]*model.Post, error)     { return nil, b.err }
func (b brokenRepository) FindByID(context.Context, string) (*model.Post, error) {
	return nil, b.err
}
func (b brokenRepository) UpdateFields(context.Context, string, model.PostFields) (bool, error) {
	return false, b.err
}
func (b brokenRepository) Delete(context.Context, string) (bool, error) { return false, b.err }
func (b brokenRepository) Close() error                                 { return nil }

func TestStorageErrorsHiddenFromPages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := brokenRepository{err: errors.New("dial tcp 10.0.0.5:5432: connection refused (user=zenith password=hunter2)")}
	svc := service.NewPostService(repo)
	tmpl, err := web.NewTemplates()
	require.NoError(t, err)
	r := Setup(testConfig(), handler.NewHandler(svc), web.NewPages(tmpl, svc))

	w := request(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load posts: Failed to fetch posts")
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = request(r, http.MethodGet, "/posts/abc", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")

	w = request(r, http.MethodGet, "/api/posts", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch posts"}`, w.Body.String())
}
