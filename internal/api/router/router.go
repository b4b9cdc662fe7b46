package router

import (
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/zenith-cms/config"
	_ "github.com/d60-Lab/zenith-cms/docs"
	"github.com/d60-Lab/zenith-cms/internal/api/handler"
	"github.com/d60-Lab/zenith-cms/internal/api/middleware"
	"github.com/d60-Lab/zenith-cms/internal/web"
	"github.com/d60-Lab/zenith-cms/pkg/errreport"
	"github.com/d60-Lab/zenith-cms/pkg/response"
)

// Setup 组装中间件与路由；pages 为 nil 时不挂载浏览器页面
func Setup(cfg *config.Config, h *handler.Handler, pages *web.Pages) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if cfg.Sentry.DSN != "" {
		r.Use(errreport.Middleware())
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/swagger"})))
	r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	if cfg.Server.BodyLimit > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		posts := api.Group("/posts")
		posts.GET("", h.ListPosts)
		posts.POST("", h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.PATCH("/:id", h.UpdatePost)
		posts.DELETE("/:id", h.DeletePost)
	}

	if cfg.Swagger.Enabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if pages != nil {
		r.GET("/", pages.Index)
		r.GET("/posts/:id", pages.Post)
	}

	r.NoRoute(func(c *gin.Context) {
		if pages == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			response.NotFound(c, "Not found")
			return
		}
		pages.NotFound(c)
	})

	return r
}
