package match

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/model"
)

// Match 单局的回合控制. 主机驱动阶段计时并产生事实, 其余节点只应用事实.
// 所有方法只在对局的任务循环上调用
type Match struct {
	ID   string
	repo Repo

	engine    *model.Engine
	state     *model.MatchState
	stage     *Stage
	clock     clock
	dice      Dice
	presenter Presenter
	mLog      *Log

	animating   bool  // 移动动画进行中, 阻止本地操作
	animMoveID  int64 //
	animTimerID int64 // 动画看门狗
}

type Option func(*Match)

func WithDice(d Dice) Option {
	return func(m *Match) { m.dice = d }
}

func WithPresenter(p Presenter) Option {
	return func(m *Match) { m.presenter = p }
}

func NewMatch(id string, board model.Board, repo Repo, opts ...Option) *Match {
	c := repo.GetConfig()
	m := &Match{
		ID:        id,
		repo:      repo,
		engine:    model.NewEngine(board),
		state:     model.NewMatchState(c.Players, c.DedupeCap),
		stage:     &Stage{},
		dice:      RandomDice{},
		presenter: NopPresenter{},
		mLog:      NewMatchLog(id, c.LogOpen),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Match) Desc() string {
	return fmt.Sprintf("(M:%s host:%v %s)", m.ID, m.repo.IsHost(), m.state.Desc())
}

// State 本地副本, 调用方只读
func (m *Match) State() *model.MatchState { return m.state }
func (m *Match) Engine() *model.Engine    { return m.engine }
func (m *Match) Stage() *Stage            { return m.stage }
func (m *Match) Animating() bool          { return m.animating }

// Snapshot 当前状态快照, 计时属于当前回合时一并写入
func (m *Match) Snapshot() *model.Snapshot {
	return m.snapshotOf(m.state)
}

func (m *Match) snapshotOf(s *model.MatchState) *model.Snapshot {
	snap := s.Snapshot()
	if m.clock.matches(s) {
		snap.SetTimer(m.clock.startAt, m.clock.duration)
	}
	return snap
}

// Restore 用快照覆盖本地副本, 去重记录保留
func (m *Match) Restore(snap *model.Snapshot) error {
	if err := m.state.Restore(snap, m.engine.Board().RingSize()); err != nil {
		return err
	}
	m.clock = clock{}
	if snap.HasTimer() {
		m.clock = clock{
			player:   snap.Turn,
			phase:    model.Phase(snap.Phase),
			startAt:  snap.TimerStartAt(),
			duration: time.Duration(float64(snap.TimerDuration) * float64(time.Second)),
		}
	}
	m.stopAnimation()
	return nil
}

// Remaining 当前阶段的剩余时间, 加上宽限, 不低于配置的最小值
func (m *Match) Remaining(now time.Time, grace time.Duration) time.Duration {
	return m.Snapshot().Remaining(now, grace, m.repo.GetConfig().MinRemaining.Duration)
}

// LegalMoves 当前玩家按已确认点数可走的棋子
func (m *Match) LegalMoves() []int32 {
	if m.state.Phase != model.PhaseAwaitMove || m.state.LastRoll == 0 {
		return nil
	}
	return m.engine.LegalMoves(m.state, m.state.Turn, m.state.LastRoll)
}

// AnimationDone 表现层播放完 moveID 的移动
func (m *Match) AnimationDone(moveID int64) bool {
	if !m.animating || m.animMoveID != moveID {
		return false
	}
	m.stopAnimation()
	return true
}

func (m *Match) startAnimation(moveID int64) {
	timer := m.repo.GetTimer()
	timer.Cancel(m.animTimerID)
	m.animating = true
	m.animMoveID = moveID
	m.animTimerID = timer.Once(m.repo.GetConfig().AnimationWatchdog.Duration, func() {
		m.onAnimationWatchdog(moveID)
	})
}

func (m *Match) stopAnimation() {
	if m.animTimerID != 0 {
		m.repo.GetTimer().Cancel(m.animTimerID)
	}
	m.animating = false
	m.animTimerID = 0
}

func (m *Match) onAnimationWatchdog(moveID int64) {
	if !m.animating || m.animMoveID != moveID {
		return
	}
	m.animTimerID = 0
	m.stopAnimation()
	log.Warnf("animation watchdog fired, clear guard. moveID=%d m=%v", moveID, m.Desc())
	m.mLog.watchdog(moveID)
}

// Close 停止计时并关闭对局日志
func (m *Match) Close() error {
	m.StopTimers()
	m.stopAnimation()
	return m.mLog.Close()
}
