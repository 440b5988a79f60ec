package work

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/library/xgo"
)

/*
	串行任务队列: 所有 job 在同一个协程按提交顺序执行
*/

// Poster 投递任务
type Poster interface {
	Post(job func())
}

// Loop 单协程有序任务队列, 队列不设上限, Post 永不阻塞
type Loop struct {
	mu      sync.Mutex
	jobs    []func()
	signal  chan struct{}
	done    chan struct{}
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewLoop() *Loop {
	return &Loop{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (lp *Loop) Start() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.started || lp.stopped {
		return
	}
	lp.started = true
	lp.wg.Add(1)
	go lp.run()
	log.Info("loop start ..")
}

// Stop 停止循环, 已投递但未执行的任务被丢弃
func (lp *Loop) Stop() {
	lp.mu.Lock()
	if lp.stopped {
		lp.mu.Unlock()
		return
	}
	lp.stopped = true
	lp.jobs = nil
	lp.mu.Unlock()

	close(lp.done)
	lp.wg.Wait()
	log.Info("loop routine stop.")
}

func (lp *Loop) Jobs() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return len(lp.jobs)
}

func (lp *Loop) Post(job func()) {
	lp.mu.Lock()
	if lp.stopped {
		lp.mu.Unlock()
		return
	}
	lp.jobs = append(lp.jobs, job)
	lp.mu.Unlock()

	select {
	case lp.signal <- struct{}{}:
	default:
	}
}

// PostAndWait 投递并等待执行完成
func (lp *Loop) PostAndWait(ctx context.Context, job func()) error {
	finished := make(chan struct{})
	lp.Post(func() {
		defer close(finished)
		job()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-lp.done:
		return context.Canceled
	}
}

func (lp *Loop) run() {
	defer lp.wg.Done()
	for {
		select {
		case <-lp.done:
			return
		case <-lp.signal:
		}
		for {
			lp.mu.Lock()
			if len(lp.jobs) == 0 || lp.stopped {
				lp.mu.Unlock()
				break
			}
			job := lp.jobs[0]
			lp.jobs[0] = nil
			lp.jobs = lp.jobs[1:]
			lp.mu.Unlock()

			lp.exec(job)
		}
	}
}

func (lp *Loop) exec(job func()) {
	defer xgo.RecoverFromError(nil)
	job()
}
