package scheduler

import (
	"context"
	"order_fulfillment/pkg/logger"
	"time"

	"go.uber.org/zap"
)

// Job 定时任务：返回处理的条目数
type Job func(ctx context.Context) (int, error)

// Scheduler 进程内定时调度器，按固定间隔在独立协程中执行任务
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	cancel   context.CancelFunc
}

// New 创建调度器
func New(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
	}
}

// Start 启动调度协程
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.run(ctx)
	logger.Log.Info("Scheduler started",
		zap.String("job", s.name),
		zap.Duration("interval", s.interval),
	)
}

// Stop 停止调度器（幂等）
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Scheduler stopped", zap.String("job", s.name))
			return
		case <-ticker.C:
			start := time.Now()
			count, err := s.job(ctx)
			if err != nil {
				logger.Log.Error("Scheduled job failed",
					zap.String("job", s.name),
					zap.Error(err),
				)
				continue
			}
			logger.Log.Info("Scheduled job finished",
				zap.String("job", s.name),
				zap.Int("processed", count),
				zap.Duration("cost", time.Since(start)),
			)
		}
	}
}
