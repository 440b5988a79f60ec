package authority

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

/*
	本地操作, 供表现层调用. 请求一律发给主机, 主机自己也走回环
*/

// RequestRoll 请求掷骰
func (a *Authority) RequestRoll(ctx context.Context) error {
	return a.call(ctx, func() error {
		if err := a.checkLocal(model.PhaseAwaitRoll); err != nil {
			return err
		}
		return a.tr.SendToHost(ctx, &protocol.RollRequest{Player: a.self.Seat})
	})
}

// RequestMove 请求移动, 只在本地已应用掷骰事实后发送, 点数取已确认的值
func (a *Authority) RequestMove(ctx context.Context, pawnID int32) error {
	return a.call(ctx, func() error {
		if err := a.checkLocal(model.PhaseAwaitMove); err != nil {
			return err
		}
		st := a.match.State()
		if ok, code := a.match.Engine().CanMove(st, a.self.Seat, pawnID, st.LastRoll); !ok {
			return fmt.Errorf("%w: pawn=%d roll=%d code=%d", codes.ErrIllegalMove, pawnID, st.LastRoll, code)
		}
		return a.tr.SendToHost(ctx, &protocol.MoveRequest{Player: a.self.Seat, PawnID: pawnID, Roll: st.LastRoll})
	})
}

// RequestAdvanceTurn 选子阶段无棋可走时请求结束回合
func (a *Authority) RequestAdvanceTurn(ctx context.Context) error {
	return a.call(ctx, func() error {
		if err := a.checkLocal(model.PhaseAwaitMove); err != nil {
			return err
		}
		return a.tr.SendToHost(ctx, &protocol.AdvanceTurnRequest{Player: a.self.Seat})
	})
}

// AnimationDone 表现层播放完移动
func (a *Authority) AnimationDone(moveID int64) {
	a.loop.Post(func() {
		if !a.match.AnimationDone(moveID) {
			log.Debugf("animation done ignored. moveID=%d", moveID)
		}
	})
}

// Resume 重连: 副本从存储恢复并请求全量同步, 主机广播全量状态补发断线期间的事实.
// 轮到自己选子时返回剩余时间, 否则返回 0
func (a *Authority) Resume(ctx context.Context) (time.Duration, error) {
	var remaining time.Duration
	err := a.call(ctx, func() error {
		if a.isHost {
			if a.started {
				if err := a.match.OnSyncReq(); err != nil {
					return fmt.Errorf("push state: %w", err)
				}
			}
		} else {
			snap, err := a.store.Load(ctx, a.matchID)
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			if snap != nil {
				if err := a.match.Restore(snap); err != nil {
					return fmt.Errorf("restore snapshot: %w", err)
				}
				a.started = true
			}
		}
		st := a.match.State()
		if st.Turn == a.self.Seat && st.Phase == model.PhaseAwaitMove && !st.Over {
			remaining = a.match.Remaining(time.Now(), a.GetConfig().ReconnectGrace.Duration)
		}
		a.requestSync()
		log.Infof("resume. remaining=%v a=%v", remaining, a.Desc())
		return nil
	})
	return remaining, err
}

func (a *Authority) checkLocal(phase model.Phase) error {
	st := a.match.State()
	switch {
	case a.match.Animating():
		return codes.ErrAnimating
	case st.Over:
		return codes.ErrMatchOver
	case st.Turn != a.self.Seat:
		return codes.ErrNotYourTurn
	case st.Phase != phase:
		return codes.ErrWrongPhase
	}
	return nil
}

// call 在任务循环上执行 f 并等待结果
func (a *Authority) call(ctx context.Context, f func() error) error {
	errCh := make(chan error, 1)
	a.loop.Post(func() { errCh <- f() })
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
