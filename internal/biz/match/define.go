package match

import (
	"fmt"
	"sync"
	"time"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/library/ext"
)

/*
	Source 操作来源
*/

type Source int32

const (
	SrcManual  Source = iota // 玩家主动操作
	SrcTimeout               // 超时, 主机代操作并标记托管
	SrcAuto                  // 唯一可选或托管中, 不改变托管状态
)

func (s Source) String() string {
	switch s {
	case SrcManual:
		return "manual"
	case SrcTimeout:
		return "timeout"
	case SrcAuto:
		return "auto"
	default:
		return fmt.Sprintf("Source(%d)", int32(s))
	}
}

/*
	Stage 主机的阶段计时. Gen 每次切换递增, 旧的定时回调据此丢弃
*/

type Stage struct {
	mu       sync.RWMutex
	Phase    model.Phase
	Player   int32
	Gen      uint64
	TimerID  int64
	StartAt  time.Time
	Duration time.Duration
	Running  bool
}

// Next 生成新的代号, 之前的定时回调全部失效
func (s *Stage) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gen++
	return s.Gen
}

func (s *Stage) GetGen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Gen
}

func (s *Stage) GetTimerID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TimerID
}

func (s *Stage) GetPhase() model.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Phase
}

func (s *Stage) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Running
}

func (s *Stage) Set(phase model.Phase, player int32, duration time.Duration, timerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = phase
	s.Player = player
	s.StartAt = time.Now()
	s.Duration = duration
	s.TimerID = timerID
	s.Running = true
}

func (s *Stage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TimerID = 0
	s.Running = false
}

func (s *Stage) Desc() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("[%v p:%d gen:%d dur:%v running:%v]", s.Phase, s.Player, s.Gen, s.Duration, s.Running)
}

// clock 最近一次 TimerStart, 所有节点都记录, 写入快照供重连和迁移使用
type clock struct {
	player   int32
	phase    model.Phase
	startAt  time.Time
	duration time.Duration
}

func (c clock) matches(s *model.MatchState) bool {
	return !c.startAt.IsZero() && c.duration > 0 && c.player == s.Turn && c.phase == s.Phase
}

func (c clock) remaining(now time.Time) time.Duration {
	return max(c.startAt.Add(c.duration).Sub(now), 0)
}

/*
	Dice 骰子
*/

type Dice interface {
	Roll() int32
}

// RandomDice 1..6 等概率
type RandomDice struct{}

func (RandomDice) Roll() int32 {
	return ext.RandInt[int32](model.MinRoll, model.MaxRoll+1)
}

type DiceFunc func() int32

func (f DiceFunc) Roll() int32 { return f() }

/*
	Presenter 表现层回调, 所有节点在应用事实后调用
*/

type Presenter interface {
	OnRoll(player, value int32)
	OnMove(step *model.Step, moveID int64)
	OnTurn(player int32, phase model.Phase)
	OnTimer(player int32, phase model.Phase, remaining time.Duration)
	OnMatchEnd(ranking []int32)
}

type NopPresenter struct{}

func (NopPresenter) OnRoll(int32, int32)                       {}
func (NopPresenter) OnMove(*model.Step, int64)                 {}
func (NopPresenter) OnTurn(int32, model.Phase)                 {}
func (NopPresenter) OnTimer(int32, model.Phase, time.Duration) {}
func (NopPresenter) OnMatchEnd([]int32)                        {}
