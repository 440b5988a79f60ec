package work

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultWheelTick = 50 * time.Millisecond // 回合计时不需要更高精度
	defaultWheelSize = 128
)

// wheelEvery 周期定时, 以上次触发时间为基准防止漂移
type wheelEvery struct {
	interval time.Duration
	last     atomic.Value // time.Time
}

func (p *wheelEvery) Next(t time.Time) time.Time {
	last, _ := p.last.Load().(time.Time)
	if last.IsZero() {
		last = t
	}
	next := last.Add(p.interval)
	for steps := 0; !next.After(t); steps++ {
		if steps > maxIntervalJumps {
			log.Warnf("[wheel] skipped too many intervals: %d", steps)
			next = t.Add(p.interval)
			break
		}
		next = next.Add(p.interval)
	}
	p.last.Store(next)
	return next
}

type WheelOption func(*wheelScheduler)

func WithTick(d time.Duration) WheelOption {
	return func(s *wheelScheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

func WithWheelSize(size int64) WheelOption {
	return func(s *wheelScheduler) {
		if size > 0 {
			s.wheelSize = size
		}
	}
}

func WithContext(ctx context.Context) WheelOption {
	return func(s *wheelScheduler) { s.ctx = ctx }
}

func WithExecutor(exec IExecutor) WheelOption {
	return func(s *wheelScheduler) { s.executor = exec }
}

type wheelEntry struct {
	timer     *timingwheel.Timer
	cancelled atomic.Bool
}

// wheelScheduler 基于时间轮的调度器
type wheelScheduler struct {
	tick      time.Duration
	wheelSize int64
	executor  IExecutor
	tw        *timingwheel.TimingWheel
	tasks     sync.Map // map[int64]*wheelEntry
	nextID    atomic.Int64
	shutdown  atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	once      sync.Once
}

// NewWheelScheduler 创建时间轮调度器
func NewWheelScheduler(opts ...WheelOption) Scheduler {
	s := &wheelScheduler{
		tick:      defaultWheelTick,
		wheelSize: defaultWheelSize,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.ctx)
	s.tw = timingwheel.NewTimingWheel(s.tick, s.wheelSize)
	s.tw.Start()
	go func() {
		<-s.ctx.Done()
		s.Stop()
	}()
	return s
}

func (s *wheelScheduler) Len() int {
	n := 0
	s.tasks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *wheelScheduler) Once(delay time.Duration, f func()) int64 {
	return s.schedule(delay, false, f)
}

func (s *wheelScheduler) Forever(interval time.Duration, f func()) int64 {
	return s.schedule(interval, true, f)
}

func (s *wheelScheduler) Cancel(taskID int64) {
	val, ok := s.tasks.LoadAndDelete(taskID)
	if !ok {
		return
	}
	entry := val.(*wheelEntry)
	if entry.cancelled.CompareAndSwap(false, true) && entry.timer != nil {
		entry.timer.Stop()
	}
}

func (s *wheelScheduler) CancelAll() {
	s.tasks.Range(func(key, _ any) bool {
		s.Cancel(key.(int64))
		return true
	})
}

func (s *wheelScheduler) Stop() {
	s.once.Do(func() {
		s.shutdown.Store(true)
		s.CancelAll()
		s.cancel()
		s.tw.Stop()
		log.Info("[wheel] scheduler stopped")
	})
}

func (s *wheelScheduler) schedule(delay time.Duration, repeated bool, f func()) int64 {
	if s.shutdown.Load() {
		log.Warn("[wheel] scheduler is stopped; task rejected")
		return -1
	}
	if delay <= 0 {
		delay = s.tick
	}

	taskID := s.nextID.Add(1)
	entry := &wheelEntry{}
	s.tasks.Store(taskID, entry)

	fire := func() {
		if entry.cancelled.Load() {
			return
		}
		if !repeated {
			s.tasks.Delete(taskID)
		}
		ExecuteAsync(s.executor, func() {
			if !entry.cancelled.Load() {
				f()
			}
		})
	}

	if repeated {
		entry.timer = s.tw.ScheduleFunc(&wheelEvery{interval: delay}, fire)
	} else {
		entry.timer = s.tw.AfterFunc(delay, fire)
	}
	return taskID
}
