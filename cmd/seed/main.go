package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/internal/repository"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var (
	categories = []string{"General", "Tech", "Life", "Travel", "Food"}
	authors    = []string{"Ada", "Linus", "Grace", "", "Ken"}
)

// seed 通过服务层写入演示文章，参数来自环境变量：N 文章数，RESET=1 先清空
func main() {
	cfg := must(config.Load())
	_ = must(logger.Init(cfg.Log.Level, cfg.Log.Format))
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n := 24
	if s := os.Getenv("N"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			n = v
		}
	}
	reset := os.Getenv("RESET") == "1"

	repo, closeRepo := must2(repository.OpenCached(ctx, cfg))
	defer func() { _ = closeRepo(context.Background()) }()
	svc := service.NewPostService(repo)

	if reset {
		existing := must(svc.List(ctx))
		for _, p := range existing {
			if err := svc.Delete(ctx, p.ID); err != nil && !service.IsNotFound(err) {
				panic(err)
			}
		}
		logger.Info("cleared posts", zap.Int("count", len(existing)))
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		in := service.CreatePostInput{
			Title:    fmt.Sprintf("Demo post #%d", i+1),
			Category: categories[i%len(categories)],
			Author:   authors[i%len(authors)],
			Content:  demoContent(i),
		}
		must(svc.Create(ctx, in))
	}
	logger.Info("seeded posts",
		zap.Int("count", n),
		zap.String("driver", cfg.Database.Driver),
		zap.Duration("took", time.Since(start)),
	)
}

func must2[A, B any](a A, b B, err error) (A, B) {
	if err != nil {
		panic(err)
	}
	return a, b
}

func demoContent(i int) string {
	para := "Zenith keeps every post in one list, newest first. " +
		"Search matches titles, bodies and authors; categories narrow the grid."
	return strings.Repeat(para+"\n", 1+i%3)
}
