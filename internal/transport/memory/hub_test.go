package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
)

type inbox struct {
	msgs        []protocol.Message
	from        []string
	memberships []transport.Membership
}

func listen(ep *Endpoint) *inbox {
	in := &inbox{}
	ep.OnReceive(func(from transport.Peer, msg protocol.Message) {
		in.msgs = append(in.msgs, msg)
		in.from = append(in.from, from.ID)
	})
	ep.OnMembership(func(m transport.Membership) { in.memberships = append(in.memberships, m) })
	return in
}

func TestBroadcastSkipsSelf(t *testing.T) {
	hub := NewHub()
	a, b, c := hub.Join("a", 0), hub.Join("b", 1), hub.Join("c", 2)
	ia, ib, ic := listen(a), listen(b), listen(c)
	hub.Drain()

	require.NoError(t, a.Broadcast(context.Background(), &protocol.RollFact{ID: 1, Player: 0, Value: 6}))
	hub.Drain()

	require.Empty(t, ia.msgs)
	require.Len(t, ib.msgs, 1)
	require.Len(t, ic.msgs, 1)
	require.Equal(t, &protocol.RollFact{ID: 1, Player: 0, Value: 6}, ib.msgs[0])
	require.Equal(t, "a", ic.from[0])
}

func TestSendToHostLoopsBack(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join("a", 0), hub.Join("b", 1)
	ia, ib := listen(a), listen(b)

	require.NoError(t, a.SendToHost(context.Background(), &protocol.RollRequest{Player: 0}))
	require.NoError(t, b.SendToHost(context.Background(), &protocol.RollRequest{Player: 1}))
	hub.Drain()

	require.Len(t, ia.msgs, 2)
	require.Empty(t, ib.msgs)
	require.Equal(t, []string{"a", "b"}, ia.from)
}

func TestHostFailover(t *testing.T) {
	hub := NewHub()
	a := hub.Join("a", 0)
	hub.Join("b", 1)
	c := hub.Join("c", 2)
	ic := listen(c)
	require.Equal(t, "a", hub.Host())

	require.NoError(t, a.Close())
	hub.Drain()

	require.Equal(t, "b", hub.Host())
	last := ic.memberships[len(ic.memberships)-1]
	require.Equal(t, "b", last.Host)
	require.False(t, last.Has("a"))
	require.True(t, last.HasSeat(2))

	require.NoError(t, hub.SetHost("c"))
	require.Error(t, hub.SetHost("a"))
	require.Equal(t, "c", hub.Host())
}

func TestDuplicateAndFilter(t *testing.T) {
	hub := NewHub()
	a, b, c := hub.Join("a", 0), hub.Join("b", 1), hub.Join("c", 2)
	ib, ic := listen(b), listen(c)
	hub.SetDuplicate(true)
	hub.SetFilter(func(_, to string, _ protocol.Message) bool { return to != "c" })

	require.NoError(t, a.Broadcast(context.Background(), &protocol.TimerStop{ID: 3}))
	hub.Drain()

	require.Len(t, ib.msgs, 2)
	require.Empty(t, ic.msgs)

	hub.Leave("a")
	require.ErrorIs(t, a.Broadcast(context.Background(), &protocol.TimerStop{ID: 4}), ErrClosed)
}
