package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/pkg/logger"
)

// Warmable is implemented by caches that can reload themselves.
type Warmable interface {
	Warm(ctx context.Context) error
}

type warmJob struct {
	postID string
	enqAt  time.Time
}

// CacheWarmer 本地异步回填执行器：写操作失效缓存后排队，worker 重新加载列表
type CacheWarmer struct {
	target    Warmable
	ch        chan warmJob
	metricsCh chan time.Duration
	timeout   time.Duration
}

func NewCacheWarmer(target Warmable, queueSize int) *CacheWarmer {
	if queueSize <= 0 {
		queueSize = 128
	}
	return &CacheWarmer{
		target:    target,
		ch:        make(chan warmJob, queueSize),
		metricsCh: make(chan time.Duration, 1024),
		timeout:   5 * time.Second,
	}
}

// Start 启动若干 worker；返回的停止函数会让 worker 排空队列后退出
func (w *CacheWarmer) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-w.ch:
					w.run(job)
				case <-stopCh:
					for {
						select {
						case job := <-w.ch:
							w.run(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *CacheWarmer) run(job warmJob) {
	// 队列里已有更新的任务时跳过，只需最后一次回填
	if len(w.ch) > 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.target.Warm(ctx); err != nil {
		logger.Warn("cache warm failed", zap.String("post", job.postID), zap.Error(err))
		return
	}
	select {
	case w.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 非阻塞入队；队列满时丢弃并告警，下一次读取会自行回源
func (w *CacheWarmer) Enqueue(postID string) {
	select {
	case w.ch <- warmJob{postID: postID, enqAt: time.Now()}:
	default:
		logger.Warn("cache warmer queue full, drop job", zap.String("post", postID))
	}
}

// Metrics 返回回填耗时的只读通道（每完成一次发送一次 duration）。
func (w *CacheWarmer) Metrics() <-chan time.Duration { return w.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (w *CacheWarmer) QueueLen() int { return len(w.ch) }
