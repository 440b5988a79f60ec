package authority

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/ext"
)

/*
	成员变化与主机迁移
*/

func (a *Authority) onMembership(m transport.Membership) {
	prevHost, wasHost := a.membership.Host, a.isHost
	a.membership = m
	a.isHost = m.Host != "" && m.Host == a.self.ID
	log.Debugf("membership. host=%s peers=%+v a=%v", m.Host, m.Peers, a.Desc())

	switch {
	case a.isHost && !wasHost:
		a.takeOver()
	case a.isHost:
		a.checkMembers()
	case wasHost:
		log.Warnf("[host] lost host role. new=%s", m.Host)
		a.match.StopTimers()
	}

	if !a.isHost && m.Host != "" && m.Host != prevHost {
		a.requestSync()
	}
}

// takeOver 成为主机: 清空去重记录, 事实ID跳过随机水位, 从存储恢复后接管回合
func (a *Authority) takeOver() {
	st := a.match.State()
	high := max(st.Processed.High(), a.nextID)
	st.Processed.Clear()
	c := a.GetConfig()
	a.nextID = high + ext.RandInt(c.WatermarkMin, c.WatermarkMax)
	log.Infof("[host] take over. high=%d next=%d a=%v", high, a.nextID, a.Desc())

	snap, err := a.store.Load(a.ctx, a.matchID)
	if err != nil {
		log.Errorf("[host] load snapshot failed, keep local replica. err=%v", err)
	}
	if snap != nil {
		if err := a.match.Restore(snap); err != nil {
			log.Errorf("[host] restore snapshot failed, keep local replica. err=%v", err)
		} else {
			a.started = true
		}
	}

	if !a.started {
		a.tryStart()
		return
	}
	a.match.TakeOver(a.present, time.Now())
}

// checkMembers 主机处理掉线的座位, 未开局时检查是否满员
func (a *Authority) checkMembers() {
	if !a.started {
		a.tryStart()
		return
	}
	st := a.match.State()
	if st.Over {
		return
	}
	for p := int32(0); p < st.PlayerCount; p++ {
		if st.IsRanked(p) || a.present(p) {
			continue
		}
		if err := a.match.OnPlayerLeft(p); err != nil {
			log.Errorf("player left failed. p=%d err=%v", p, err)
		}
	}
}

// tryStart 所有座位在线后开局
func (a *Authority) tryStart() {
	for p := int32(0); p < a.GetConfig().Players; p++ {
		if !a.present(p) {
			log.Infof("waiting for players. missing=%d a=%v", p, a.Desc())
			return
		}
	}
	a.started = true
	if err := a.match.Start(); err != nil {
		log.Errorf("start match failed. err=%v", err)
	}
}

func (a *Authority) present(player int32) bool {
	return a.membership.HasSeat(player)
}
