package model

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Heartbeat 按 cron 表达式定期检查模型后端，只记录日志
type Heartbeat struct {
	cron    *cron.Cron
	holder  *Holder
	timeout time.Duration
	log     *zap.Logger
}

// NewHeartbeat schedule 支持标准 5 段表达式和 "@every 5m" 这类描述符
func NewHeartbeat(holder *Holder, schedule string, timeout time.Duration, log *zap.Logger) (*Heartbeat, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Heartbeat{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		holder:  holder,
		timeout: timeout,
		log:     log,
	}
	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("parse heartbeat schedule %q: %w", schedule, err)
	}
	return p, nil
}

func (p *Heartbeat) Start() {
	p.cron.Start()
	p.log.Info("Model heartbeat started", zap.Int("entries", len(p.cron.Entries())))
}

// Stop 停止调度，返回的 context 在正在执行的探测结束后 Done
func (p *Heartbeat) Stop() context.Context {
	return p.cron.Stop()
}

func (p *Heartbeat) run() {
	if !p.holder.IsReady() {
		p.log.Debug("Model heartbeat skipped", zap.Stringer("state", p.holder.State()))
		return
	}

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.holder.Ping(ctx); err != nil {
		p.log.Warn("Model heartbeat failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	p.log.Debug("Model heartbeat succeeded", zap.Duration("took", time.Since(start)))
}
