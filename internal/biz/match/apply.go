package match

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

/*
	事实应用. 主机和其他节点走同一条路径, 重复的事实ID直接丢弃
*/

// Apply 按类型应用事实
func (m *Match) Apply(f protocol.Fact) error {
	switch v := f.(type) {
	case *protocol.RollFact:
		_, err := m.ApplyRoll(v)
		return err
	case *protocol.MoveFact:
		_, err := m.ApplyMove(v)
		return err
	case *protocol.TurnFact:
		return m.ApplyTurn(v)
	case *protocol.TimerStart:
		return m.ApplyTimerStart(v)
	case *protocol.TimerStop:
		return m.ApplyTimerStop(v)
	case *protocol.StateFact:
		return m.ApplyState(v)
	default:
		return codes.ErrInvalidMessage
	}
}

func (m *Match) ApplyRoll(f *protocol.RollFact) (model.RollResult, error) {
	s := m.state
	switch {
	case s.Processed.Contains(f.ID):
		return model.RollResult{}, codes.ErrDuplicateFact
	case s.Over:
		return model.RollResult{}, codes.ErrMatchOver
	case f.Player != s.Turn:
		return model.RollResult{}, codes.ErrNotYourTurn
	case s.Phase != model.PhaseAwaitRoll:
		return model.RollResult{}, codes.ErrWrongPhase
	case f.Value < model.MinRoll || f.Value > model.MaxRoll:
		return model.RollResult{}, codes.ErrInvalidMessage
	}

	res := m.engine.ApplyRoll(s, f.Player, f.Value)
	s.Processed.Add(f.ID)
	m.mLog.roll(f.ID, f.Player, res)
	m.presenter.OnRoll(f.Player, f.Value)
	return res, nil
}

func (m *Match) ApplyMove(f *protocol.MoveFact) (*model.Step, error) {
	s := m.state
	switch {
	case s.Processed.Contains(f.MoveID):
		return nil, codes.ErrDuplicateFact
	case s.Over:
		return nil, codes.ErrMatchOver
	case f.Player != s.Turn:
		return nil, codes.ErrNotYourTurn
	case s.Phase != model.PhaseAwaitMove:
		return nil, codes.ErrWrongPhase
	case f.Roll != s.LastRoll:
		return nil, codes.ErrRollMismatch
	}

	wasOver := s.Over
	step, code := m.engine.Apply(s, f.Player, f.PawnID, f.Roll)
	if code != model.MoveOK {
		return nil, fmt.Errorf("%w: pawn=%d roll=%d code=%d", codes.ErrIllegalMove, f.PawnID, f.Roll, code)
	}
	s.Processed.Add(f.MoveID)
	m.startAnimation(f.MoveID)
	m.mLog.move(f.MoveID, step)
	m.presenter.OnMove(step, f.MoveID)
	m.checkEnd(wasOver)
	return step, nil
}

// ApplyTurn 换人或额外回合, 用携带的全量状态重同步
func (m *Match) ApplyTurn(f *protocol.TurnFact) error {
	s := m.state
	switch {
	case s.Processed.Contains(f.ID):
		return codes.ErrDuplicateFact
	case f.Sync == nil || f.Sync.Turn != f.Next:
		return codes.ErrInvalidMessage
	}

	wasOver, prev := s.Over, s.Turn
	if err := s.Restore(f.Sync, m.engine.Board().RingSize()); err != nil {
		return fmt.Errorf("%w: %v", codes.ErrInvalidMessage, err)
	}
	s.Processed.Add(f.ID)
	m.stopAnimation()
	m.mLog.turn(f.ID, prev, s)
	m.presenter.OnTurn(s.Turn, s.Phase)
	m.checkEnd(wasOver)
	return nil
}

// ApplyState 全量状态, 包括计时
func (m *Match) ApplyState(f *protocol.StateFact) error {
	s := m.state
	switch {
	case s.Processed.Contains(f.ID):
		return codes.ErrDuplicateFact
	case f.State == nil:
		return codes.ErrInvalidMessage
	}

	wasOver := s.Over
	if err := m.Restore(f.State); err != nil {
		return fmt.Errorf("%w: %v", codes.ErrInvalidMessage, err)
	}
	s.Processed.Add(f.ID)
	m.mLog.sync(f.ID, s)
	m.presenter.OnTurn(s.Turn, s.Phase)
	if m.clock.matches(s) {
		m.presenter.OnTimer(m.clock.player, m.clock.phase, m.clock.remaining(time.Now()))
	}
	m.checkEnd(wasOver)
	return nil
}

func (m *Match) ApplyTimerStart(f *protocol.TimerStart) error {
	if m.state.Processed.Contains(f.ID) {
		return codes.ErrDuplicateFact
	}
	if f.DurationMs <= 0 {
		return codes.ErrInvalidMessage
	}
	m.clock = clock{
		player:   f.Player,
		phase:    model.Phase(f.Phase),
		startAt:  time.UnixMilli(f.StartAtMs),
		duration: time.Duration(f.DurationMs) * time.Millisecond,
	}
	m.state.Processed.Add(f.ID)
	m.presenter.OnTimer(f.Player, model.Phase(f.Phase), m.clock.remaining(time.Now()))
	return nil
}

func (m *Match) ApplyTimerStop(f *protocol.TimerStop) error {
	if m.state.Processed.Contains(f.ID) {
		return codes.ErrDuplicateFact
	}
	m.clock = clock{}
	m.state.Processed.Add(f.ID)
	return nil
}

func (m *Match) checkEnd(wasOver bool) {
	if wasOver || !m.state.Over {
		return
	}
	ranking := m.state.Ranking()
	log.Infof("match over. ranking=%v m=%v", ranking, m.Desc())
	m.mLog.end(ranking)
	m.presenter.OnMatchEnd(ranking)
}
