package work

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

func waitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal(msg)
	}
}

func TestLoop(t *testing.T) {
	lp := NewLoop()
	lp.Start()
	defer lp.Stop()

	t.Run("jobs run in post order", func(t *testing.T) {
		var (
			mu  sync.Mutex
			got []int
		)
		for i := 0; i < 100; i++ {
			i := i
			lp.Post(func() {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
			})
		}
		require.NoError(t, lp.PostAndWait(context.Background(), func() {}))

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, got, 100)
		for i, v := range got {
			require.Equal(t, i, v)
		}
	})

	t.Run("panic inside job is recovered", func(t *testing.T) {
		lp.Post(func() { panic("oops") })
		done := make(chan struct{})
		lp.Post(func() { close(done) })
		waitForChannel(t, done, time.Second, "loop died after panic")
	})

	t.Run("PostAndWait honours context", func(t *testing.T) {
		block := make(chan struct{})
		lp.Post(func() { <-block })
		defer close(block)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := lp.PostAndWait(ctx, func() {})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLoopStopDropsJobs(t *testing.T) {
	lp := NewLoop()
	lp.Start()
	lp.Stop()

	var ran atomic.Bool
	lp.Post(func() { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)
	require.False(t, ran.Load())
	require.Zero(t, lp.Jobs())
}

func TestPool(t *testing.T) {
	p := NewPool(2)
	require.NoError(t, p.Start())
	require.NoError(t, p.Start())
	defer p.Stop()

	done := make(chan struct{})
	p.Post(func() { close(done) })
	waitForChannel(t, done, time.Second, "pool job not executed")
}

func TestWheelScheduler(t *testing.T) {
	p := NewPool(4)
	require.NoError(t, p.Start())
	defer p.Stop()

	s := NewWheelScheduler(WithTick(10*time.Millisecond), WithExecutor(p))
	defer s.Stop()

	t.Run("Once task executes", func(t *testing.T) {
		done := make(chan struct{})
		s.Once(20*time.Millisecond, func() { close(done) })
		waitForChannel(t, done, time.Second, "Once task did not execute")
	})

	t.Run("Forever task repeats until cancelled", func(t *testing.T) {
		var count atomic.Int32
		done := make(chan struct{})
		var once sync.Once
		id := s.Forever(15*time.Millisecond, func() {
			if count.Add(1) >= 3 {
				once.Do(func() { close(done) })
			}
		})
		waitForChannel(t, done, time.Second, "Forever task timed out")
		s.Cancel(id)

		time.Sleep(30 * time.Millisecond)
		prev := count.Load()
		time.Sleep(60 * time.Millisecond)
		require.Equal(t, prev, count.Load())
	})

	t.Run("Cancel prevents execution", func(t *testing.T) {
		var executed atomic.Bool
		id := s.Once(40*time.Millisecond, func() { executed.Store(true) })
		s.Cancel(id)
		time.Sleep(80 * time.Millisecond)
		require.False(t, executed.Load())
	})

	t.Run("CancelAll", func(t *testing.T) {
		var executed atomic.Int32
		for i := 0; i < 5; i++ {
			s.Once(40*time.Millisecond, func() { executed.Add(1) })
		}
		s.CancelAll()
		require.Zero(t, s.Len())
		time.Sleep(80 * time.Millisecond)
		require.Zero(t, executed.Load())
	})
}

func TestStoreTimerRunsOnLoop(t *testing.T) {
	st := NewStore(context.Background(), WithWheelOptions(WithTick(10*time.Millisecond)))
	require.NoError(t, st.Start())
	defer st.Stop()

	var inLoop atomic.Bool
	marker := make(chan struct{})
	st.Post(func() { close(marker) })
	waitForChannel(t, marker, time.Second, "loop not running")

	done := make(chan struct{})
	st.GetTimer().Once(20*time.Millisecond, func() {
		// 回调和普通 job 串行, 这里读写无需加锁
		inLoop.Store(true)
		close(done)
	})
	waitForChannel(t, done, time.Second, "timer callback not posted to loop")
	require.True(t, inLoop.Load())
}

func TestStoppedSchedulerRejects(t *testing.T) {
	s := NewWheelScheduler()
	s.Stop()
	require.Equal(t, int64(-1), s.Once(time.Millisecond, func() {}))
}
