package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/internal/feed"
	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
)

const siteTitle = "Zenith CMS"

// Pages 渲染浏览器页面
type Pages struct {
	templates *Templates
	posts     service.PostService
}

func NewPages(templates *Templates, posts service.PostService) *Pages {
	return &Pages{templates: templates, posts: posts}
}

// IndexPageData holds data for index.html.
type IndexPageData struct {
	Title string
	View  feed.View
	// LoadError is set when the list could not be fetched; the grid is
	// then shown empty instead of stale.
	LoadError string
}

// PostPageData holds data for post.html.
type PostPageData struct {
	Title string
	Post  model.Post
	Card  feed.Card
}

type notFoundPageData struct {
	Title string
}

// Index 文章网格；q 与 category 查询参数驱动筛选
func (p *Pages) Index(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		category = feed.AllCategories
	}
	state := feed.NewState(nil).
		WithCategory(category).
		WithSearch(c.Query("q"))

	data := IndexPageData{Title: siteTitle}
	status := http.StatusOK

	posts, err := p.posts.List(c.Request.Context())
	if err != nil {
		logger.Error("render index: list posts", zap.Error(err))
		data.LoadError = "Failed to load posts: " + service.MsgFetchPostsFailed
		status = http.StatusInternalServerError
	} else {
		state = state.WithSnapshot(deref(posts))
	}
	data.View = feed.Render(state)

	p.render(c, status, "index.html", data)
}

// Post 单篇文章页
func (p *Pages) Post(c *gin.Context) {
	post, err := p.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if service.IsNotFound(err) {
			p.NotFound(c)
			return
		}
		logger.Error("render post", zap.Error(err), zap.String("id", c.Param("id")))
		c.String(http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	p.render(c, http.StatusOK, "post.html", PostPageData{
		Title: post.Title + " · " + siteTitle,
		Post:  *post,
		Card:  feed.NewCard(*post),
	})
}

// NotFound also serves as the engine's NoRoute handler for browser paths.
func (p *Pages) NotFound(c *gin.Context) {
	p.render(c, http.StatusNotFound, "not_found.html", notFoundPageData{Title: "Not found · " + siteTitle})
}

func (p *Pages) render(c *gin.Context, status int, name string, data any) {
	if err := p.templates.Render(c.Writer, status, name, data); err != nil {
		logger.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

func deref(posts []*model.Post) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, *p)
	}
	return out
}
