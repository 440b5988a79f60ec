package transport

import (
	"context"
	"slices"

	"github.com/yola1107/ludo-arbiter/internal/protocol"
)

// NoSeat 观战或尚未入座
const NoSeat int32 = -1

// Peer 连接到同一对局的节点
type Peer struct {
	ID   string `json:"id" msgpack:"id"`
	Seat int32  `json:"seat" msgpack:"seat"`
}

// Membership 在线节点与当前主机. Peers 按加入顺序排列
type Membership struct {
	Host  string `json:"host" msgpack:"host"`
	Peers []Peer `json:"peers" msgpack:"peers"`
}

func (m Membership) Has(id string) bool {
	return slices.ContainsFunc(m.Peers, func(p Peer) bool { return p.ID == id })
}

// HasSeat 座位上是否有在线节点
func (m Membership) HasSeat(seat int32) bool {
	return seat != NoSeat && slices.ContainsFunc(m.Peers, func(p Peer) bool { return p.Seat == seat })
}

func (m Membership) Peer(id string) (Peer, bool) {
	i := slices.IndexFunc(m.Peers, func(p Peer) bool { return p.ID == id })
	if i < 0 {
		return Peer{Seat: NoSeat}, false
	}
	return m.Peers[i], true
}

// Handler 收到消息的回调, 运行在传输层的 goroutine 上
type Handler func(from Peer, msg protocol.Message)

// Transport 节点间消息通道
type Transport interface {
	Self() Peer
	// SendToHost 发给当前主机, 自己是主机时回环给自己
	SendToHost(ctx context.Context, msg protocol.Message) error
	// Broadcast 发给除自己以外的所有节点
	Broadcast(ctx context.Context, msg protocol.Message) error
	OnReceive(h Handler)
	OnMembership(h func(Membership))
	Close() error
}
