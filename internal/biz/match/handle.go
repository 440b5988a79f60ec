package match

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

// OnRollReq 主机处理掷骰
func (m *Match) OnRollReq(player int32, src Source) error {
	if err := m.checkAction(player, model.PhaseAwaitRoll); err != nil {
		return err
	}
	m.markSource(player, src)

	fact := &protocol.RollFact{ID: m.repo.NextFactID(), Player: player, Value: m.dice.Roll()}
	res, err := m.ApplyRoll(fact)
	if err != nil {
		return err
	}
	m.repo.Publish(fact)

	legal := m.engine.LegalMoves(m.state, player, res.Value)
	log.Debugf("OnRollReq. p=%d roll=%d sixes=%d forfeit=%v legal=%v src=%v",
		player, res.Value, res.Sixes, res.Forfeit, legal, src)

	// 回合控制
	switch {
	case res.Forfeit:
		// 连续三个6, 本回合作废
		m.endTurn()
	case len(legal) == 0:
		m.endTurn()
	case len(legal) == 1:
		// 只有一枚可走, 直接执行
		return m.OnMoveReq(player, legal[0], res.Value, SrcAuto)
	default:
		m.updateStage(model.PhaseAwaitMove)
	}
	return nil
}

// OnMoveReq 主机处理移动, roll 必须与主机确认的点数一致
func (m *Match) OnMoveReq(player, pawnID, roll int32, src Source) error {
	if err := m.checkAction(player, model.PhaseAwaitMove); err != nil {
		return err
	}
	if roll != m.state.LastRoll {
		return codes.ErrRollMismatch
	}
	if ok, code := m.engine.CanMove(m.state, player, pawnID, roll); !ok {
		return fmt.Errorf("%w: pawn=%d roll=%d code=%d", codes.ErrIllegalMove, pawnID, roll, code)
	}
	m.markSource(player, src)

	fact := &protocol.MoveFact{MoveID: m.repo.NextFactID(), Player: player, PawnID: pawnID, Roll: roll}
	step, err := m.ApplyMove(fact)
	if err != nil {
		return err
	}
	m.repo.Publish(fact)

	log.Debugf("OnMoveReq. p=%d pawn=%d roll=%d to=%v captured=%v finished=%v src=%v",
		player, pawnID, roll, step.To, step.Captured != nil, step.Finished, src)

	if step.MatchOver {
		m.finish(m.state.Clone())
		return nil
	}
	m.endTurn()
	return nil
}

// OnAdvanceReq 当前玩家卡在选子阶段且无棋可走时请求结束回合
func (m *Match) OnAdvanceReq(player int32) error {
	if err := m.checkAction(player, model.PhaseAwaitMove); err != nil {
		return err
	}
	if len(m.engine.LegalMoves(m.state, player, m.state.LastRoll)) > 0 {
		return codes.ErrNotStuck
	}
	log.Infof("OnAdvanceReq. p=%d roll=%d m=%v", player, m.state.LastRoll, m.Desc())
	m.endTurn()
	return nil
}

// OnPlayerLeft 玩家离开对局, 排在所有在局玩家之后. 轮到他时立即换人
func (m *Match) OnPlayerLeft(player int32) error {
	switch {
	case !m.repo.IsHost():
		return codes.ErrNotHost
	case !m.state.ValidPlayer(player):
		return codes.ErrInvalidMessage
	case m.state.Over:
		return codes.ErrMatchOver
	case m.state.IsRanked(player):
		return nil
	}

	next := m.state.Clone()
	next.MarkLeft(player)
	over := next.CheckOver()
	held := next.Turn == player
	log.Infof("OnPlayerLeft. p=%d held=%v over=%v m=%v", player, held, over, m.Desc())
	m.mLog.leave(player, next.LeaveOrder)

	switch {
	case over:
		m.finish(next)
	case held:
		if m.engine.AdvanceTurn(next) < 0 {
			m.emitState(next)
			m.stopStage()
			return nil
		}
		m.emitTurn(next)
		m.updateStage(model.PhaseAwaitRoll)
	default:
		m.emitState(next)
	}
	return nil
}

// OnSyncReq 回复全量状态
func (m *Match) OnSyncReq() error {
	if !m.repo.IsHost() {
		return codes.ErrNotHost
	}
	m.emitState(m.state.Clone())
	return nil
}

func (m *Match) checkAction(player int32, phase model.Phase) error {
	switch {
	case !m.repo.IsHost():
		return codes.ErrNotHost
	case m.state.Over:
		return codes.ErrMatchOver
	case player != m.state.Turn:
		return codes.ErrNotYourTurn
	case m.state.Phase != phase:
		return codes.ErrWrongPhase
	}
	return nil
}

// markSource 超时进入托管, 主动操作解除托管
func (m *Match) markSource(player int32, src Source) {
	switch src {
	case SrcManual:
		if m.state.SetBot(player, false) {
			log.Infof("player back from bot. p=%d", player)
			m.mLog.bot(player, false)
		}
	case SrcTimeout:
		if m.state.SetBot(player, true) {
			log.Infof("player timed out, bot on. p=%d", player)
			m.mLog.bot(player, true)
		}
	}
}
