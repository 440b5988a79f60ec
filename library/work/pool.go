package work

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/panjf2000/ants/v2"
)

// Pool 基于 ants 的协程池, 实现 IExecutor
type Pool struct {
	mu   sync.RWMutex
	pool *ants.Pool
	size int
	opts []ants.Option
}

func NewPool(size int, opts ...ants.Option) *Pool {
	return &Pool{
		size: size,
		opts: append([]ants.Option{ants.WithExpiryDuration(60 * time.Second)}, opts...),
	}
}

func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return nil
	}
	pool, err := ants.NewPool(p.size, p.opts...)
	if err != nil {
		return fmt.Errorf("pool init failed: %w", err)
	}
	p.pool = pool
	log.Infof("pool start... [size:%d]", p.size)
	return nil
}

func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		log.Infof("pool stopping [running:%d]", p.pool.Running())
		p.pool.Release()
		p.pool = nil
	}
}

func (p *Pool) Running() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pool == nil {
		return 0
	}
	return p.pool.Running()
}

// Post 提交任务, 池未启动或提交失败时退化为独立协程
func (p *Pool) Post(job func()) {
	p.mu.RLock()
	pool := p.pool
	p.mu.RUnlock()

	if pool != nil {
		err := pool.Submit(job)
		if err == nil {
			return
		}
		log.Warnf("pool submit failed, fallback to goroutine: %v", err)
	}
	go job()
}
