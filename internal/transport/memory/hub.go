package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
)

var (
	ErrClosed  = errors.New("memory: endpoint closed")
	ErrNoHost  = errors.New("memory: no host")
	ErrUnknown = errors.New("memory: unknown peer")
)

// Filter 返回 false 时丢弃该条消息
type Filter func(from, to string, msg protocol.Message) bool

type delivery struct {
	from       transport.Peer
	to         string
	data       []byte
	membership *transport.Membership
}

// Hub 进程内传输, 消息入队后由 Drain 按顺序投递, 便于测试复现时序
type Hub struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	order     []string // 加入顺序
	host      string
	queue     []delivery
	duplicate bool
	filter    Filter
	draining  bool
}

func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]*Endpoint)}
}

// SetDuplicate 每条消息投递两次
func (h *Hub) SetDuplicate(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.duplicate = on
}

func (h *Hub) SetFilter(f Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filter = f
}

// Join 加入对局, 第一个加入的节点成为主机
func (h *Hub) Join(id string, seat int32) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	ep := &Endpoint{hub: h, self: transport.Peer{ID: id, Seat: seat}}
	h.endpoints[id] = ep
	h.order = append(slices.DeleteFunc(h.order, func(s string) bool { return s == id }), id)
	if h.host == "" {
		h.host = id
	}
	h.announceLocked()
	return ep
}

// Leave 节点掉线, 主机掉线时由最早加入的在线节点接任
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.endpoints[id]; !ok {
		return
	}
	delete(h.endpoints, id)
	h.order = slices.DeleteFunc(h.order, func(s string) bool { return s == id })
	if h.host == id {
		h.host = ""
		if len(h.order) > 0 {
			h.host = h.order[0]
		}
	}
	h.announceLocked()
}

// SetHost 指定主机
func (h *Hub) SetHost(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.endpoints[id]; !ok {
		return ErrUnknown
	}
	h.host = id
	h.announceLocked()
	return nil
}

func (h *Hub) Host() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.host
}

func (h *Hub) Membership() transport.Membership {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.membershipLocked()
}

func (h *Hub) membershipLocked() transport.Membership {
	m := transport.Membership{Host: h.host, Peers: make([]transport.Peer, 0, len(h.order))}
	for _, id := range h.order {
		m.Peers = append(m.Peers, h.endpoints[id].self)
	}
	return m
}

func (h *Hub) announceLocked() {
	m := h.membershipLocked()
	for _, id := range h.order {
		h.queue = append(h.queue, delivery{to: id, membership: &m})
	}
}

// Pending 队列中待投递的条数
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Drain 投递队列中的所有消息, 包括投递过程中新产生的. 返回投递条数
func (h *Hub) Drain() int {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		return 0
	}
	h.draining = true
	h.mu.Unlock()

	n := 0
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.draining = false
			h.mu.Unlock()
			return n
		}
		d := h.queue[0]
		h.queue = h.queue[1:]
		ep := h.endpoints[d.to]
		h.mu.Unlock()

		if ep == nil {
			continue
		}
		n++
		if d.membership != nil {
			ep.deliverMembership(*d.membership)
			continue
		}
		msg, err := protocol.Decode(d.data)
		if err != nil {
			log.Errorf("memory hub decode failed. from=%s to=%s err=%v", d.from.ID, d.to, err)
			continue
		}
		ep.deliver(d.from, msg)
	}
}

func (h *Hub) send(from transport.Peer, to []string, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.endpoints[from.ID]; !ok {
		return ErrClosed
	}
	for _, id := range to {
		if h.filter != nil && !h.filter(from.ID, id, msg) {
			continue
		}
		d := delivery{from: from, to: id, data: data}
		h.queue = append(h.queue, d)
		if h.duplicate {
			h.queue = append(h.queue, d)
		}
	}
	return nil
}

// Endpoint 单个节点在 Hub 上的连接
type Endpoint struct {
	hub  *Hub
	self transport.Peer

	mu           sync.RWMutex
	onReceive    transport.Handler
	onMembership func(transport.Membership)
}

var _ transport.Transport = (*Endpoint)(nil)

func (e *Endpoint) Self() transport.Peer { return e.self }

func (e *Endpoint) SendToHost(_ context.Context, msg protocol.Message) error {
	host := e.hub.Host()
	if host == "" {
		return ErrNoHost
	}
	return e.hub.send(e.self, []string{host}, msg)
}

func (e *Endpoint) Broadcast(_ context.Context, msg protocol.Message) error {
	m := e.hub.Membership()
	to := make([]string, 0, len(m.Peers))
	for _, p := range m.Peers {
		if p.ID != e.self.ID {
			to = append(to, p.ID)
		}
	}
	return e.hub.send(e.self, to, msg)
}

func (e *Endpoint) OnReceive(h transport.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReceive = h
}

func (e *Endpoint) OnMembership(h func(transport.Membership)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMembership = h
}

func (e *Endpoint) Close() error {
	e.hub.Leave(e.self.ID)
	return nil
}

func (e *Endpoint) deliver(from transport.Peer, msg protocol.Message) {
	e.mu.RLock()
	h := e.onReceive
	e.mu.RUnlock()
	if h != nil {
		h(from, msg)
	}
}

func (e *Endpoint) deliverMembership(m transport.Membership) {
	e.mu.RLock()
	h := e.onMembership
	e.mu.RUnlock()
	if h != nil {
		h(m)
	}
}
