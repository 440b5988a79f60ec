package match

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

/*
	主机回合推进
*/

// Start 开局, 为当前玩家启动掷骰计时
func (m *Match) Start() error {
	if !m.repo.IsHost() {
		return codes.ErrNotHost
	}
	if m.state.Over {
		return codes.ErrMatchOver
	}
	log.Infof("******** <match start> %v", m.Desc())
	m.mLog.begin(m.state)
	m.emitState(m.state.Clone())
	m.updateStage(m.state.Phase)
	return nil
}

// TakeOver 成为主机后接管: 不在线的座位按离开处理, 然后恢复阶段计时
func (m *Match) TakeOver(present func(player int32) bool, now time.Time) {
	m.stopAnimation()
	log.Infof("[host] take over. m=%v", m.Desc())
	m.mLog.host(m.state)

	if m.state.Over {
		m.emitState(m.state.Clone())
		return
	}
	turn := m.state.Turn
	for p := int32(0); p < m.state.PlayerCount; p++ {
		if !m.state.IsRanked(p) && !present(p) {
			if err := m.OnPlayerLeft(p); err != nil {
				log.Errorf("take over: leave failed. p=%d err=%v", p, err)
			}
		}
	}
	if m.state.Over || m.state.Turn != turn {
		return
	}

	if m.state.Phase == model.PhaseAwaitMove && len(m.LegalMoves()) == 0 {
		m.endTurn()
		return
	}
	d := m.timeout(m.state.Phase)
	if m.clock.matches(m.state) {
		d = max(m.clock.remaining(now), m.repo.GetConfig().MinRemaining.Duration)
	}
	m.updateStageWith(m.state.Phase, d)
	m.emitState(m.state.Clone())
}

// OnTimer 阶段超时, 代玩家操作
func (m *Match) OnTimer(gen uint64) {
	if gen != m.stage.GetGen() {
		log.Debugf("[Stage] stale timer ignored. gen=%d current=%d", gen, m.stage.GetGen())
		return
	}
	m.stage.Clear()
	if !m.repo.IsHost() || m.state.Over {
		return
	}

	player, phase := m.state.Turn, m.stage.GetPhase()
	src := SrcTimeout
	if m.state.IsBot(player) {
		src = SrcAuto
	}
	log.Debugf("[Stage] OnTimer timeout. phase=%v p=%d src=%v m=%v", phase, player, src, m.Desc())

	var err error
	switch phase {
	case model.PhaseAwaitRoll:
		err = m.OnRollReq(player, src)
	case model.PhaseAwaitMove:
		pawn, ok := m.pickPawn(player)
		if !ok {
			m.endTurn()
			return
		}
		err = m.OnMoveReq(player, pawn, m.state.LastRoll, src)
	default:
		log.Errorf("unhandled stage timeout: %v", phase)
	}
	if err != nil {
		log.Errorf("OnTimer act failed. p=%d phase=%v err=%v", player, phase, err)
	}
}

// StopTimers 不再是主机时停止阶段计时, 不发事实
func (m *Match) StopTimers() {
	m.repo.GetTimer().Cancel(m.stage.GetTimerID())
	m.stage.Next()
	m.stage.Clear()
}

func (m *Match) timeout(phase model.Phase) time.Duration {
	c := m.repo.GetConfig()
	if m.state.IsBot(m.state.Turn) {
		return c.BotDelay.Duration
	}
	if phase == model.PhaseAwaitMove {
		return c.MoveTimeout.Duration
	}
	return c.RollTimeout.Duration
}

func (m *Match) updateStage(phase model.Phase) {
	m.updateStageWith(phase, m.timeout(phase))
}

func (m *Match) updateStageWith(phase model.Phase, duration time.Duration) {
	// 取消之前定时器，启动新定时器
	timer := m.repo.GetTimer()
	timer.Cancel(m.stage.GetTimerID())
	gen := m.stage.Next()
	timerID := timer.Once(duration, func() { m.OnTimer(gen) })
	m.stage.Set(phase, m.state.Turn, duration, timerID)

	fact := &protocol.TimerStart{
		ID:         m.repo.NextFactID(),
		Player:     m.state.Turn,
		Phase:      int32(phase),
		DurationMs: duration.Milliseconds(),
		StartAtMs:  time.Now().UnixMilli(),
	}
	if err := m.ApplyTimerStart(fact); err != nil {
		log.Errorf("apply timer failed. err=%v", err)
		return
	}
	m.repo.Publish(fact)
	m.mLog.stage(m.stage.Desc())
}

func (m *Match) stopStage() {
	m.StopTimers()
	fact := &protocol.TimerStop{ID: m.repo.NextFactID(), Player: m.state.Turn}
	if err := m.ApplyTimerStop(fact); err != nil {
		log.Errorf("apply timer stop failed. err=%v", err)
		return
	}
	m.repo.Publish(fact)
}

// endTurn 有额外回合时同一玩家继续, 否则轮到下一个在局玩家
func (m *Match) endTurn() {
	next := m.state.Clone()
	if !m.engine.GrantExtraTurn(next) && m.engine.AdvanceTurn(next) < 0 {
		log.Warnf("endTurn: no active player. m=%v", m.Desc())
		m.stopStage()
		return
	}
	m.emitTurn(next)
	m.updateStage(model.PhaseAwaitRoll)
}

// finish 对局结束: 停止计时, 广播最终状态
func (m *Match) finish(final *model.MatchState) {
	m.stopStage()
	m.emitState(final)
}

func (m *Match) emitTurn(next *model.MatchState) {
	fact := &protocol.TurnFact{ID: m.repo.NextFactID(), Next: next.Turn, Sync: next.Snapshot()}
	if err := m.ApplyTurn(fact); err != nil {
		log.Errorf("apply turn failed. err=%v m=%v", err, m.Desc())
		return
	}
	m.repo.Publish(fact)
}

func (m *Match) emitState(next *model.MatchState) {
	fact := &protocol.StateFact{ID: m.repo.NextFactID(), State: m.snapshotOf(next)}
	if err := m.ApplyState(fact); err != nil {
		log.Errorf("apply state failed. err=%v m=%v", err, m.Desc())
		return
	}
	m.repo.Publish(fact)
}
