package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/repository"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/pkg/cache"
)

// countingStore 统计真正落到存储的读次数
type countingStore struct {
	repository.PostRepository
	lists atomic.Int64
	gets  atomic.Int64
}

func (s *countingStore) FindAll(ctx context.Context) ([]*model.Post, error) {
	s.lists.Add(1)
	return s.PostRepository.FindAll(ctx)
}

func (s *countingStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	s.gets.Add(1)
	return s.PostRepository.FindByID(ctx, id)
}

func (s *countingStore) reset() {
	s.lists.Store(0)
	s.gets.Store(0)
}

type op int

const (
	opList op = iota
	opGet
	opUpdate
)

type scenarioResult struct {
	durations   []time.Duration
	storeLists  int64
	storeGets   int64
	cacheKeys   int
	memoryBytes int64
}

// cachebench 对比有无 Redis 缓存时文章列表/详情的读延迟。
// 环境变量：POSTS 文章数，REQS 请求数，WRITE_PCT 写请求百分比，REDIS_ADDR。
func main() {
	ctx := context.Background()
	cfg := must(config.Load())

	posts := envInt("POSTS", 500)
	reqs := envInt("REQS", 5000)
	writePct := envInt("WRITE_PCT", 2)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	base := must(repository.Open(ctx, cfg))
	defer base.Close()
	store := &countingStore{PostRepository: base}

	client := must(cache.NewRedis(ctx, cfg.Redis))
	defer client.Close()

	fmt.Printf("Seeding %d posts (%s)...", posts, cfg.Database.Driver)
	seeder := service.NewPostService(store)
	ids := make([]string, 0, posts)
	for i := 0; i < posts; i++ {
		id := must(seeder.Create(ctx, service.CreatePostInput{
			Title:   fmt.Sprintf("bench post %d", i),
			Content: strings.Repeat("lorem ipsum ", 40),
		}))
		ids = append(ids, id)
	}
	fmt.Println(" done")

	workload := makeWorkload(reqs, writePct)

	noCache := runScenario(ctx, service.NewPostService(store), store, client, ids, workload, false)

	cached := repository.NewCachedPostRepository(store, client, cfg.Redis.TTL)
	warmer := repository.NewCacheWarmer(cached, cfg.Redis.WarmQueue)
	cached.AttachWarmer(warmer)
	stopWarmer := warmer.Start(cfg.Redis.WarmWorkers)
	withCache := runScenario(ctx, service.NewPostService(cached), store, client, ids, workload, true)
	_ = stopWarmer(ctx)

	fmt.Printf("\nPost read latency (%d req, %d posts, %d%% writes, %s + Redis)\n", reqs, posts, writePct, cfg.Database.Driver)
	report("No cache", noCache)
	report("Redis cache", withCache)

	fmt.Print("Cleaning up...")
	for _, id := range ids {
		_, _ = base.Delete(ctx, id)
	}
	fmt.Println(" done")
}

func report(name string, r scenarioResult) {
	fmt.Printf("%-12s avg=%v p95=%v p99=%v store_list=%d store_get=%d cache_keys=%d mem=%s\n",
		name, avg(r.durations), pct(r.durations, 0.95), pct(r.durations, 0.99),
		r.storeLists, r.storeGets, r.cacheKeys, formatBytes(r.memoryBytes),
	)
}

func runScenario(ctx context.Context, svc service.PostService, store *countingStore, client *redis.Client, ids []string, workload []op, warm bool) scenarioResult {
	client.FlushDB(ctx)

	if warm {
		fmt.Print("  Warming cache...")
		_ = must(svc.List(ctx))
		fmt.Println(" done")
	}
	store.reset()

	fmt.Print("  Running benchmark...")
	rnd := rand.New(rand.NewSource(42))
	out := make([]time.Duration, 0, len(workload))
	for _, o := range workload {
		id := ids[rnd.Intn(len(ids))]
		switch o {
		case opUpdate:
			title := fmt.Sprintf("edited %d", rnd.Int())
			if err := svc.Update(ctx, id, service.UpdatePostInput{Title: &title}); err != nil {
				panic(err)
			}
			continue
		case opGet:
			start := time.Now()
			_ = must(svc.Get(ctx, id))
			out = append(out, time.Since(start))
		default:
			start := time.Now()
			_ = must(svc.List(ctx))
			out = append(out, time.Since(start))
		}
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "posts:*").Result()
	info, err := client.Info(ctx, "memory").Result()
	var memBytes int64
	if err == nil {
		memBytes = parseRedisMemory(info)
	}

	return scenarioResult{
		durations:   out,
		storeLists:  store.lists.Load(),
		storeGets:   store.gets.Load(),
		cacheKeys:   len(keys),
		memoryBytes: memBytes,
	}
}

// makeWorkload 混合列表、详情与编辑请求；列表页是首页，占大头
func makeWorkload(n, writePct int) []op {
	out := make([]op, n)
	rnd := rand.New(rand.NewSource(7))
	for i := range out {
		switch r := rnd.Intn(100); {
		case r < writePct:
			out[i] = opUpdate
		case r < writePct+30:
			out[i] = opGet
		default:
			out[i] = opList
		}
	}
	return out
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
