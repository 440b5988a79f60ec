package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/biz/authority"
	"github.com/yola1107/ludo-arbiter/internal/biz/match"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/library/ext"
	"github.com/yola1107/ludo-arbiter/library/xgo"
)

var _ match.Presenter = (*AutoPlayer)(nil)

const requestTimeout = 3 * time.Second

// AutoPlayer 无界面节点的表现层: 打印事件, 移动立即视为播放完成.
// auto 打开时替本座位掷骰和选子
type AutoPlayer struct {
	auto bool
	a    *authority.Authority
	seat int32
}

func NewAutoPlayer(c *conf.Server) *AutoPlayer {
	return &AutoPlayer{auto: c != nil && c.Peer != nil && c.Peer.AutoPlay}
}

func (p *AutoPlayer) Bind(a *authority.Authority) {
	p.a = a
	p.seat = a.Self().Seat
}

func (p *AutoPlayer) OnRoll(player, value int32) {
	log.Infof("[roll] player=%d value=%d", player, value)
	if !p.auto || p.a == nil || player != p.seat {
		return
	}
	st := p.a.Match().State()
	if st.Phase != model.PhaseAwaitMove || st.Turn != p.seat {
		return
	}
	// 唯一可走时由主机自动移动
	moves := p.a.Match().LegalMoves()
	if len(moves) < 2 {
		return
	}
	pawn, _ := ext.Pick(moves)
	p.async(func(ctx context.Context) error { return p.a.RequestMove(ctx, pawn) })
}

func (p *AutoPlayer) OnMove(step *model.Step, moveID int64) {
	log.Infof("[move] id=%d pawn=%d %v->%v captured=%v", moveID, step.PawnID, step.From, step.To, step.Captured != nil)
	if p.a != nil {
		p.a.AnimationDone(moveID)
	}
}

func (p *AutoPlayer) OnTurn(player int32, phase model.Phase) {
	log.Infof("[turn] player=%d phase=%v", player, phase)
	if !p.auto || p.a == nil || player != p.seat || phase != model.PhaseAwaitRoll {
		return
	}
	if p.a.Match().State().Over {
		return
	}
	p.async(p.a.RequestRoll)
}

func (p *AutoPlayer) OnTimer(player int32, phase model.Phase, remaining time.Duration) {
	log.Debugf("[timer] player=%d phase=%v remaining=%v", player, phase, remaining)
}

func (p *AutoPlayer) OnMatchEnd(ranking []int32) {
	log.Infof("[end] ranking=%v", ranking)
}

// async 表现层回调运行在任务循环上, 本地请求需要另起协程等待结果
func (p *AutoPlayer) async(f func(ctx context.Context) error) {
	go func() {
		defer xgo.RecoverFromError(nil)
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := f(ctx); err != nil {
			log.Debugf("auto request rejected: %v", err)
		}
	}()
}
