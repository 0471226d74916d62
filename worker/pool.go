package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool 限制同时运行的计算密集型任务数量
//
// 任务在调用方 goroutine 中执行；排队等待可以被 ctx 取消，
// 一旦开始执行就会跑完。
type Pool struct {
	sem     *semaphore.Weighted
	size    int
	running atomic.Int64
	waiting atomic.Int64
}

func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", size)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}, nil
}

func (p *Pool) Size() int {
	return p.size
}

// Running 正在执行的任务数
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Waiting 排队中的任务数
func (p *Pool) Waiting() int {
	return int(p.waiting.Load())
}

// Do 等待空闲槽位后执行 fn，返回 fn 的错误；等待期间 ctx 结束则返回 ctx.Err()
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return fmt.Errorf("wait for worker: %w", err)
	}
	defer p.sem.Release(1)

	p.running.Add(1)
	defer p.running.Add(-1)

	return fn()
}
