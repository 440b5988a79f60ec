package work

import (
	"context"
	"time"
)

/*
	串行任务队列 + 定时器: 定时回调由协程池触发后回投到串行队列
*/

type Option func(*Store)

func WithPoolSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.poolSize = size
		}
	}
}

func WithWheelOptions(opts ...WheelOption) Option {
	return func(s *Store) { s.wheelOpts = append(s.wheelOpts, opts...) }
}

// Store 一个对局独占的执行环境
type Store struct {
	poolSize  int
	wheelOpts []WheelOption
	loop      *Loop
	pool      *Pool
	timer     Scheduler
}

func NewStore(ctx context.Context, opts ...Option) *Store {
	s := &Store{poolSize: 16}
	for _, o := range opts {
		o(s)
	}
	s.loop = NewLoop()
	s.pool = NewPool(s.poolSize)
	s.timer = NewWheelScheduler(append([]WheelOption{WithContext(ctx), WithExecutor(s.pool)}, s.wheelOpts...)...)
	return s
}

func (s *Store) Start() error {
	if err := s.pool.Start(); err != nil {
		return err
	}
	s.loop.Start()
	return nil
}

func (s *Store) Stop() {
	s.timer.Stop()
	s.loop.Stop()
	s.pool.Stop()
}

func (s *Store) Loop() *Loop         { return s.loop }
func (s *Store) Post(job func())     { s.loop.Post(job) }
func (s *Store) GetTimer() Scheduler { return (*loopTimer)(s) }

// loopTimer 定时回调回投到串行队列
type loopTimer Store

func (t *loopTimer) Len() int { return t.timer.Len() }

func (t *loopTimer) Once(delay time.Duration, f func()) int64 {
	return t.timer.Once(delay, func() { t.loop.Post(f) })
}

func (t *loopTimer) Forever(interval time.Duration, f func()) int64 {
	return t.timer.Forever(interval, func() { t.loop.Post(f) })
}

func (t *loopTimer) Cancel(taskID int64) { t.timer.Cancel(taskID) }
func (t *loopTimer) CancelAll()          { t.timer.CancelAll() }
func (t *loopTimer) Stop()               { t.timer.Stop() }
