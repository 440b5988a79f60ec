package websocket

import (
	"slices"
	"time"

	"github.com/yola1107/ludo-arbiter/internal/transport"
)

type member struct {
	peer  transport.Peer
	sess  *Session    // nil 表示断线, 在宽限期内保留座位
	leave *time.Timer // 宽限期计时
}

// room 同一对局的节点, 按首次加入排序
type room struct {
	id      string
	members []*member
	hostID  string
}

func (r *room) find(peerID string) *member {
	i := slices.IndexFunc(r.members, func(m *member) bool { return m.peer.ID == peerID })
	if i < 0 {
		return nil
	}
	return r.members[i]
}

func (r *room) remove(m *member) {
	r.members = slices.DeleteFunc(r.members, func(v *member) bool { return v == m })
}

// host 当前主机在线时保持不变, 否则选最早加入的在线节点. 无人在线返回 nil
func (r *room) host() *member {
	if m := r.find(r.hostID); m != nil && m.sess != nil {
		return m
	}
	for _, m := range r.members {
		if m.sess != nil {
			r.hostID = m.peer.ID
			return m
		}
	}
	return nil
}

func (r *room) membership() transport.Membership {
	ms := transport.Membership{Peers: make([]transport.Peer, 0, len(r.members))}
	if h := r.host(); h != nil {
		ms.Host = h.peer.ID
	}
	for _, m := range r.members {
		ms.Peers = append(ms.Peers, m.peer)
	}
	return ms
}

// sessions 在线会话, except 为空时返回全部
func (r *room) sessions(except string) []*Session {
	out := make([]*Session, 0, len(r.members))
	for _, m := range r.members {
		if m.sess != nil && m.peer.ID != except {
			out = append(out, m.sess)
		}
	}
	return out
}
