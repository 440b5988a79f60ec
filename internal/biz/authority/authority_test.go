package authority

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/internal/biz/match"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/internal/transport/memory"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

const matchID = "m1"

// inline 直接执行, 测试中代替任务循环
type inline struct{}

func (inline) Post(job func()) { job() }

type fakeTimer struct {
	seq   int64
	tasks map[int64]func()
}

func newFakeTimer() *fakeTimer { return &fakeTimer{tasks: make(map[int64]func())} }

func (t *fakeTimer) Len() int { return len(t.tasks) }
func (t *fakeTimer) Once(_ time.Duration, f func()) int64 {
	t.seq++
	t.tasks[t.seq] = f
	return t.seq
}
func (t *fakeTimer) Forever(d time.Duration, f func()) int64 { return t.Once(d, f) }
func (t *fakeTimer) Cancel(id int64)                         { delete(t.tasks, id) }
func (t *fakeTimer) CancelAll()                              { clear(t.tasks) }
func (t *fakeTimer) Stop()                                   { clear(t.tasks) }

func (t *fakeTimer) fire(id int64) bool {
	f, ok := t.tasks[id]
	if !ok {
		return false
	}
	delete(t.tasks, id)
	f()
	return true
}

func (t *fakeTimer) fireAll() {
	for id := range t.tasks {
		t.fire(id)
	}
}

type memStore struct {
	snaps map[string]*model.Snapshot
}

func newMemStore() *memStore { return &memStore{snaps: make(map[string]*model.Snapshot)} }

func (s *memStore) Save(_ context.Context, id string, snap *model.Snapshot) error {
	s.snaps[id] = snap
	return nil
}

func (s *memStore) Load(_ context.Context, id string) (*model.Snapshot, error) {
	return s.snaps[id], nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.snaps, id)
	return nil
}

func script(vs ...int32) match.DiceFunc {
	i := 0
	return func() int32 {
		v := vs[i%len(vs)]
		i++
		return v
	}
}

type cluster struct {
	cfg    *conf.Match
	hub    *memory.Hub
	store  *memStore
	peers  []*Authority
	timers []*fakeTimer
}

func newCluster(t *testing.T, players int32, dice ...int32) *cluster {
	c := &cluster{cfg: conf.DefaultMatch(), hub: memory.NewHub(), store: newMemStore()}
	c.cfg.Players = players
	for i := int32(0); i < players; i++ {
		ep := c.hub.Join(fmt.Sprintf("p%d", i), i)
		tm := newFakeTimer()
		a := New(matchID, model.DefaultBoard(), conf.NewLiveMatch(c.cfg), ep, inline{}, tm, c.store,
			WithMatchOptions(match.WithDice(script(dice...))))
		require.NoError(t, a.Start(context.Background()))
		c.peers = append(c.peers, a)
		c.timers = append(c.timers, tm)
	}
	c.hub.Drain()
	return c
}

func TestStartsWhenAllSeatsPresent(t *testing.T) {
	c := newCluster(t, 3, 1)
	host := c.peers[0]
	require.True(t, host.IsHost())
	for _, p := range c.peers {
		require.True(t, p.Started(), p.Desc())
		require.Equal(t, host.Match().Snapshot(), p.Match().Snapshot())
	}
	require.Equal(t, host.Match().Snapshot(), c.store.snaps[matchID])
}

func TestRollAndMoveReplicate(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 2, 6)
	host, p1 := c.peers[0], c.peers[1]

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, model.PhaseAwaitMove, p1.Match().State().Phase)
	require.Equal(t, int32(6), p1.Match().State().LastRoll)

	require.NoError(t, host.RequestMove(ctx, 0))
	c.hub.Drain()
	require.Equal(t, host.Match().Snapshot(), p1.Match().Snapshot())
	require.Equal(t, host.Match().Snapshot(), c.store.snaps[matchID])
	require.Equal(t, model.Position{Zone: model.ZoneMainPath, Index: 0}, p1.Match().State().Pawn(0).Position())

	require.ErrorIs(t, p1.RequestRoll(ctx), codes.ErrNotYourTurn)
	require.ErrorIs(t, host.RequestMove(ctx, 1), codes.ErrWrongPhase)
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 3, 6, 2, 4)
	c.hub.SetDuplicate(true)
	host := c.peers[0]

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.NoError(t, host.RequestMove(ctx, 0))
	c.hub.Drain()
	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()

	require.Equal(t, int32(2), host.Match().State().Pawn(0).MainIndex())
	require.Equal(t, int32(1), host.Match().State().Turn)
	for _, p := range c.peers[1:] {
		require.Equal(t, host.Match().Snapshot(), p.Match().Snapshot())
	}
}

func TestRequestAuthorization(t *testing.T) {
	c := newCluster(t, 2, 6)
	host, p1 := c.peers[0], c.peers[1]
	before := p1.Match().Snapshot()

	require.ErrorIs(t, host.handleRequest(transport.Peer{ID: "p1", Seat: 1}, &protocol.RollRequest{Player: 0}), codes.ErrSeatMismatch)
	require.ErrorIs(t, host.handleRequest(transport.Peer{ID: "x", Seat: transport.NoSeat}, &protocol.MoveRequest{Player: 0}), codes.ErrSeatMismatch)
	require.ErrorIs(t, p1.handleRequest(transport.Peer{ID: "p1", Seat: 1}, &protocol.RollRequest{Player: 1}), codes.ErrNotHost)

	require.ErrorIs(t, p1.handleFact(transport.Peer{ID: "px"}, &protocol.RollFact{ID: 999, Player: 0, Value: 6}), codes.ErrForeignFact)
	require.Equal(t, before, p1.Match().Snapshot())
}

func TestHostMigration(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 3, 6)
	p1, p2 := c.peers[1], c.peers[2]

	require.NoError(t, c.peers[0].RequestRoll(ctx))
	c.hub.Drain()
	high := p2.Match().State().Processed.High()

	c.hub.Leave("p0")
	c.hub.Drain()

	require.True(t, p1.IsHost())
	require.False(t, p2.IsHost())
	st := p2.Match().State()
	require.Equal(t, int32(1), st.Turn)
	require.Equal(t, model.PhaseAwaitRoll, st.Phase)
	require.Equal(t, []int32{0}, st.LeaveOrder)
	require.GreaterOrEqual(t, st.Processed.High(), high+c.cfg.WatermarkMin)
	require.Equal(t, p1.Match().Snapshot(), p2.Match().Snapshot())
	require.True(t, p1.Match().Stage().IsRunning())

	// 旧主机的事实不再被接受
	require.ErrorIs(t, p2.handleFact(transport.Peer{ID: "p0", Seat: 0}, &protocol.RollFact{ID: high + 1, Player: 1, Value: 6}), codes.ErrForeignFact)

	require.NoError(t, p1.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, p1.Match().Snapshot(), p2.Match().Snapshot())
}

func TestLeaveEndsMatchAndCleansSnapshot(t *testing.T) {
	c := newCluster(t, 2, 6)
	host := c.peers[0]

	c.hub.Leave("p1")
	c.hub.Drain()

	st := host.Match().State()
	require.True(t, st.Over)
	require.Equal(t, []int32{0, 1}, st.Ranking())
	require.True(t, c.store.snaps[matchID].Over)

	c.timers[0].fireAll()
	require.NotContains(t, c.store.snaps, matchID)
}

func TestResumeReturnsRemaining(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 2, 3, 6)
	host, p1 := c.peers[0], c.peers[1]

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.NoError(t, p1.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, model.PhaseAwaitMove, p1.Match().State().Phase)

	left, err := p1.Resume(ctx)
	require.NoError(t, err)
	c.hub.Drain()
	require.Greater(t, left, c.cfg.MoveTimeout.Duration-time.Second)
	require.LessOrEqual(t, left, c.cfg.MoveTimeout.Duration+c.cfg.ReconnectGrace.Duration)

	left, err = host.Resume(ctx)
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestDesyncedReplicaResyncs(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 2, 3, 6)
	host, p1 := c.peers[0], c.peers[1]
	c.hub.SetFilter(func(_, to string, msg protocol.Message) bool {
		return !(to == "p1" && msg.Kind() == protocol.KindTurnFact)
	})

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, int32(1), host.Match().State().Turn)
	require.Equal(t, int32(0), p1.Match().State().Turn)
	require.ErrorIs(t, p1.RequestRoll(ctx), codes.ErrNotYourTurn)

	c.hub.SetFilter(nil)
	require.True(t, c.timers[0].fire(host.Match().Stage().GetTimerID()))
	c.hub.Drain()

	require.True(t, host.Match().State().IsBot(1))
	require.Equal(t, host.Match().Snapshot(), p1.Match().Snapshot())
}

func TestHostResumePushesState(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 3, 3)
	host, p1, p2 := c.peers[0], c.peers[1], c.peers[2]
	// 主机断线期间的广播全部丢失, 只剩回环
	c.hub.SetFilter(func(from, to string, _ protocol.Message) bool { return from != "p0" || to == "p0" })

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, int32(1), host.Match().State().Turn)
	require.Equal(t, int32(0), p1.Match().State().Turn)
	require.ErrorIs(t, p1.RequestRoll(ctx), codes.ErrNotYourTurn)

	c.hub.SetFilter(nil)
	left, err := host.Resume(ctx)
	require.NoError(t, err)
	require.Zero(t, left)
	c.hub.Drain()

	for _, p := range []*Authority{p1, p2} {
		require.Equal(t, host.Match().Snapshot(), p.Match().Snapshot(), p.Desc())
	}
	require.NoError(t, p1.RequestRoll(ctx))
	c.hub.Drain()
	require.Equal(t, int32(2), p2.Match().State().Turn)
	require.False(t, host.Match().State().IsBot(1))
}

func TestAnimationBlocksLocalCommands(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, 2, 6)
	host, p1 := c.peers[0], c.peers[1]
	var moveID int64
	c.hub.SetFilter(func(_, to string, msg protocol.Message) bool {
		if mf, ok := msg.(*protocol.MoveFact); ok {
			moveID = mf.MoveID
		}
		return !(to == "p1" && msg.Kind() == protocol.KindTurnFact)
	})

	require.NoError(t, host.RequestRoll(ctx))
	c.hub.Drain()
	require.NoError(t, host.RequestMove(ctx, 0))
	c.hub.Drain()

	require.True(t, p1.Match().Animating())
	require.ErrorIs(t, p1.RequestAdvanceTurn(ctx), codes.ErrAnimating)

	p1.AnimationDone(moveID)
	require.False(t, p1.Match().Animating())
	require.ErrorIs(t, p1.RequestAdvanceTurn(ctx), codes.ErrNotYourTurn)
}
