package authority

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/biz/match"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/work"
)

// SnapshotRepo 对局快照存储, 主机每提交一个事实写一次
type SnapshotRepo interface {
	Save(ctx context.Context, matchID string, snap *model.Snapshot) error
	// Load 没有快照时返回 nil, nil
	Load(ctx context.Context, matchID string) (*model.Snapshot, error)
	Delete(ctx context.Context, matchID string) error
}

const defaultKeepAfterEnd = time.Minute

type Option func(*Authority)

func WithMatchOptions(opts ...match.Option) Option {
	return func(a *Authority) { a.matchOpts = append(a.matchOpts, opts...) }
}

// WithKeepAfterEnd 对局结束后快照保留时长
func WithKeepAfterEnd(d time.Duration) Option {
	return func(a *Authority) { a.keepAfterEnd = d }
}

// Authority 主机权威协议. 接收请求并校验, 主机产生事实后持久化再广播,
// 其他节点只接受当前主机的事实. 除公开的本地操作外, 所有方法只在任务循环上执行
type Authority struct {
	ctx     context.Context
	matchID string
	c       *conf.LiveMatch
	tr      transport.Transport
	loop    work.Poster
	timer   work.Scheduler
	store   SnapshotRepo
	match   *match.Match

	self         transport.Peer
	membership   transport.Membership
	isHost       bool
	started      bool  // 已开局: 本地应用过事实或存在快照
	nextID       int64 // 下一个事实ID
	cleaning     bool  // 已安排删除快照
	keepAfterEnd time.Duration
	matchOpts    []match.Option
}

func New(matchID string, board model.Board, c *conf.LiveMatch, tr transport.Transport,
	loop work.Poster, timer work.Scheduler, store SnapshotRepo, opts ...Option) *Authority {
	a := &Authority{
		ctx:          context.Background(),
		matchID:      matchID,
		c:            c,
		tr:           tr,
		loop:         loop,
		timer:        timer,
		store:        store,
		self:         tr.Self(),
		keepAfterEnd: defaultKeepAfterEnd,
	}
	for _, o := range opts {
		o(a)
	}
	a.match = match.NewMatch(matchID, board, a, a.matchOpts...)
	return a
}

// Start 注册传输回调, 消息和成员变化都投递到任务循环
func (a *Authority) Start(ctx context.Context) error {
	a.ctx = ctx
	a.tr.OnReceive(func(from transport.Peer, msg protocol.Message) {
		a.loop.Post(func() { a.onMessage(from, msg) })
	})
	a.tr.OnMembership(func(m transport.Membership) {
		a.loop.Post(func() { a.onMembership(m) })
	})
	log.Infof("authority start. match=%s self=%+v", a.matchID, a.self)
	return nil
}

func (a *Authority) Stop(context.Context) error {
	if err := a.match.Close(); err != nil {
		log.Errorf("close match failed. err=%v", err)
	}
	return a.tr.Close()
}

func (a *Authority) Desc() string {
	return fmt.Sprintf("(A:%s self:%s seat:%d host:%v started:%v next:%d)",
		a.matchID, a.self.ID, a.self.Seat, a.isHost, a.started, a.nextID)
}

func (a *Authority) Match() *match.Match              { return a.match }
func (a *Authority) Self() transport.Peer             { return a.self }
func (a *Authority) Membership() transport.Membership { return a.membership }
func (a *Authority) Started() bool                    { return a.started }

/*
	match.Repo
*/

func (a *Authority) GetTimer() work.Scheduler { return a.timer }
func (a *Authority) GetConfig() *conf.Match   { return a.c.Load() }
func (a *Authority) IsHost() bool             { return a.isHost }

func (a *Authority) NextFactID() int64 {
	a.nextID++
	return a.nextID
}

// Publish 本地已应用的事实: 先写快照再广播. 写失败只记录, 下一个事实会重写
func (a *Authority) Publish(fact protocol.Fact) {
	snap := a.match.Snapshot()
	if err := a.store.Save(a.ctx, a.matchID, snap); err != nil {
		log.Errorf("save snapshot failed. fact=%v id=%d err=%v", fact.Kind(), fact.FactID(), err)
	}
	if err := a.tr.Broadcast(a.ctx, fact); err != nil {
		log.Errorf("broadcast failed. fact=%v id=%d err=%v", fact.Kind(), fact.FactID(), err)
	}
	if snap.Over {
		a.scheduleCleanup()
	}
}

func (a *Authority) scheduleCleanup() {
	if a.cleaning {
		return
	}
	a.cleaning = true
	a.timer.Once(a.keepAfterEnd, func() {
		if err := a.store.Delete(a.ctx, a.matchID); err != nil {
			log.Errorf("delete snapshot failed. match=%s err=%v", a.matchID, err)
			return
		}
		log.Infof("snapshot deleted. match=%s", a.matchID)
	})
}
