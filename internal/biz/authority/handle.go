package authority

import (
	"errors"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/biz/match"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

func (a *Authority) onMessage(from transport.Peer, msg protocol.Message) {
	if protocol.IsRequest(msg) {
		if err := a.handleRequest(from, msg); err != nil {
			log.Warnf("reject request. from=%+v kind=%v msg=%+v err=%v a=%v", from, msg.Kind(), msg, err, a.Desc())
		}
		return
	}
	fact, ok := msg.(protocol.Fact)
	if !ok {
		log.Errorf("unknown message. from=%+v kind=%v", from, msg.Kind())
		return
	}
	if err := a.handleFact(from, fact); err != nil {
		if errors.Is(err, codes.ErrDuplicateFact) {
			log.Debugf("duplicate fact dropped. kind=%v id=%d", fact.Kind(), fact.FactID())
			return
		}
		log.Warnf("drop fact. from=%+v kind=%v id=%d err=%v a=%v", from, fact.Kind(), fact.FactID(), err, a.Desc())
	}
}

// handleRequest 只有主机处理请求, 请求必须来自该座位的节点
func (a *Authority) handleRequest(from transport.Peer, msg protocol.Message) error {
	if !a.isHost {
		return codes.ErrNotHost
	}
	if !a.started {
		return codes.ErrNotStarted
	}

	m := a.match
	switch v := msg.(type) {
	case *protocol.RollRequest:
		if err := authorize(from, v.Player); err != nil {
			return err
		}
		return m.OnRollReq(v.Player, match.SrcManual)
	case *protocol.MoveRequest:
		if err := authorize(from, v.Player); err != nil {
			return err
		}
		return m.OnMoveReq(v.Player, v.PawnID, v.Roll, match.SrcManual)
	case *protocol.AdvanceTurnRequest:
		if err := authorize(from, v.Player); err != nil {
			return err
		}
		return m.OnAdvanceReq(v.Player)
	case *protocol.SyncRequest:
		log.Debugf("sync request. from=%+v", from)
		return m.OnSyncReq()
	default:
		return codes.ErrInvalidMessage
	}
}

func authorize(from transport.Peer, player int32) error {
	if from.Seat == transport.NoSeat || from.Seat != player {
		return codes.ErrSeatMismatch
	}
	return nil
}

// handleFact 只接受当前主机发出的事实. 应用失败说明副本落后, 请求全量同步
func (a *Authority) handleFact(from transport.Peer, fact protocol.Fact) error {
	if a.isHost {
		return codes.ErrForeignFact
	}
	if from.ID != a.membership.Host {
		return codes.ErrForeignFact
	}
	err := a.match.Apply(fact)
	switch {
	case err == nil:
		a.started = true
		return nil
	case errors.Is(err, codes.ErrDuplicateFact):
		return err
	default:
		a.requestSync()
		return err
	}
}

func (a *Authority) requestSync() {
	if a.isHost || a.membership.Host == "" {
		return
	}
	if err := a.tr.SendToHost(a.ctx, &protocol.SyncRequest{Player: a.self.Seat}); err != nil {
		log.Errorf("send sync request failed. err=%v", err)
	}
}
