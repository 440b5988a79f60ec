package work

import (
	"time"

	"github.com/yola1107/ludo-arbiter/library/xgo"
)

// Scheduler 定时任务调度器接口
type Scheduler interface {
	Len() int                                       // 当前注册任务数量
	Once(delay time.Duration, f func()) int64       // 注册一次性任务
	Forever(interval time.Duration, f func()) int64 // 注册周期任务
	Cancel(taskID int64)                            // 取消指定任务
	CancelAll()                                     // 取消所有任务
	Stop()                                          // 停止调度器
}

// IExecutor 任务执行器接口，用于自定义任务执行方式（如协程池）
type IExecutor interface {
	Post(job func())
}

const maxIntervalJumps = 10000

// ExecuteAsync 通过 executor 执行 f, executor 为空时起协程
func ExecuteAsync(executor IExecutor, f func()) {
	run := func() {
		defer xgo.RecoverFromError(nil)
		f()
	}
	if executor != nil {
		executor.Post(run)
	} else {
		go run()
	}
}
