package model

import (
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

func newTestMatch(players int32) (*Engine, *MatchState) {
	return NewEngine(DefaultBoard()), NewMatchState(players, DefaultRecentCap)
}

func place(t *testing.T, s *MatchState, id int32, zone PawnZone, main, home int32) {
	t.Helper()
	require.NoError(t, s.Pawn(id).restore(zone, main, home, 52))
}

func TestPawnTransitions(t *testing.T) {
	p := NewPawn(0, 0)
	require.Equal(t, ZoneHome, p.Zone())

	require.False(t, p.moveMain(3), "home pawn cannot walk the ring")
	require.False(t, p.enterHomeLane(0))
	require.False(t, p.moveHome(1))

	require.True(t, p.enterMain(0))
	require.Equal(t, int32(0), p.MainIndex())
	require.Equal(t, int32(NoIndex), p.HomeIndex())
	require.False(t, p.enterMain(13))

	require.True(t, p.moveMain(50))
	require.True(t, p.enterHomeLane(2))
	require.Equal(t, ZoneHomeLane, p.Zone())
	require.Equal(t, int32(NoIndex), p.MainIndex(), "main index cleared inside home lane")

	require.False(t, p.moveHome(1), "cannot walk backwards")
	require.False(t, p.moveHome(6))
	require.True(t, p.moveHome(5))
	require.True(t, p.IsFinished())
	require.Equal(t, int32(FinishIndex), p.HomeIndex())
	require.False(t, p.moveHome(5))

	p.sendHome()
	require.Equal(t, Position{Zone: ZoneHome, Index: NoIndex}, p.Position())
}

func TestPath(t *testing.T) {
	e, s := newTestMatch(4)

	t.Run("home needs six", func(t *testing.T) {
		_, code := e.Path(s.Pawn(0), 5)
		require.Equal(t, ErrNeedSix, code)
		path, code := e.Path(s.Pawn(4), 6)
		require.Equal(t, MoveOK, code)
		require.Equal(t, []Position{{ZoneMainPath, 13}}, path)
	})

	t.Run("ring wraps", func(t *testing.T) {
		place(t, s, 4, ZoneMainPath, 50, NoIndex) // 绿色 home-entry 为 11
		path, code := e.Path(s.Pawn(4), 4)
		require.Equal(t, MoveOK, code)
		require.Equal(t, []Position{{ZoneMainPath, 51}, {ZoneMainPath, 0}, {ZoneMainPath, 1}, {ZoneMainPath, 2}}, path)
	})

	t.Run("landing on home entry stays on ring", func(t *testing.T) {
		place(t, s, 0, ZoneMainPath, 47, NoIndex)
		path, _ := e.Path(s.Pawn(0), 3)
		require.Equal(t, Position{ZoneMainPath, 50}, path[len(path)-1])
	})

	t.Run("passing home entry enters lane", func(t *testing.T) {
		place(t, s, 0, ZoneMainPath, 48, NoIndex)
		path, _ := e.Path(s.Pawn(0), 5)
		require.Equal(t, []Position{
			{ZoneMainPath, 49}, {ZoneMainPath, 50},
			{ZoneHomeLane, 0}, {ZoneHomeLane, 1}, {ZoneHomeLane, 2},
		}, path)
	})

	t.Run("six from home entry finishes", func(t *testing.T) {
		place(t, s, 0, ZoneMainPath, 50, NoIndex)
		path, _ := e.Path(s.Pawn(0), 6)
		require.Len(t, path, 6)
		require.Equal(t, Position{ZoneFinished, 5}, path[5])
	})

	t.Run("main path always legal", func(t *testing.T) {
		for cell := int32(0); cell < 52; cell++ {
			if cell == 51 {
				continue // 红色棋子不会走到 51
			}
			place(t, s, 0, ZoneMainPath, cell, NoIndex)
			for roll := int32(1); roll <= 6; roll++ {
				_, code := e.Path(s.Pawn(0), roll)
				require.Equal(t, MoveOK, code, "cell=%d roll=%d", cell, roll)
			}
		}
	})
}

func TestLegalMoves(t *testing.T) {
	e, s := newTestMatch(2)

	require.Empty(t, e.LegalMoves(s, 0, 3), "all pawns at home")
	require.Equal(t, []int32{0, 1, 2, 3}, e.LegalMoves(s, 0, 6))

	place(t, s, 0, ZoneHomeLane, NoIndex, 3)
	place(t, s, 1, ZoneMainPath, 20, NoIndex)
	place(t, s, 2, ZoneFinished, NoIndex, 5)
	require.Equal(t, []int32{1}, e.LegalMoves(s, 0, 3), "homeIndex 3 + 3 overshoots")
	require.Equal(t, []int32{0, 1}, e.LegalMoves(s, 0, 2))

	ok, code := e.CanMove(s, 0, 0, 3)
	require.False(t, ok)
	require.Equal(t, ErrOvershoot, code)

	ok, code = e.CanMove(s, 1, 1, 3)
	require.False(t, ok)
	require.Equal(t, ErrNotOwner, code)

	ok, code = e.CanMove(s, 0, 2, 1)
	require.False(t, ok)
	require.Equal(t, ErrPawnFinished, code)

	ok, code = e.CanMove(s, 0, 99, 1)
	require.False(t, ok)
	require.Equal(t, ErrInvalidPawn, code)
}

func TestApplyRejectionLeavesStateUntouched(t *testing.T) {
	e, s := newTestMatch(2)
	place(t, s, 0, ZoneHomeLane, NoIndex, 3)
	before := s.Snapshot()

	step, code := e.Apply(s, 0, 0, 3)
	require.Nil(t, step)
	require.Equal(t, ErrOvershoot, code)
	require.Equal(t, before, s.Snapshot())
}

func TestCapture(t *testing.T) {
	t.Run("lone enemy is captured", func(t *testing.T) {
		e, s := newTestMatch(2)
		place(t, s, 0, ZoneMainPath, 10, NoIndex)
		place(t, s, 4, ZoneMainPath, 15, NoIndex)

		step, code := e.Apply(s, 0, 0, 5)
		require.Equal(t, MoveOK, code)
		require.NotNil(t, step.Captured)
		require.Equal(t, int32(4), step.Captured.PawnID)
		require.Equal(t, Position{ZoneMainPath, 15}, step.Captured.From)
		require.Equal(t, ZoneHome, s.Pawn(4).Zone())
		require.Equal(t, int32(1), s.PendingExtraTurns)
		require.Equal(t, int32(15), s.Pawn(0).MainIndex())
	})

	t.Run("two different colours block", func(t *testing.T) {
		e, s := newTestMatch(3)
		place(t, s, 0, ZoneMainPath, 17, NoIndex)
		place(t, s, 4, ZoneMainPath, 20, NoIndex)
		place(t, s, 8, ZoneMainPath, 20, NoIndex)

		step, _ := e.Apply(s, 0, 0, 3)
		require.Nil(t, step.Captured)
		require.True(t, step.Blocked)
		require.Equal(t, ZoneMainPath, s.Pawn(4).Zone())
		require.Equal(t, ZoneMainPath, s.Pawn(8).Zone())
		require.Zero(t, s.PendingExtraTurns)
	})

	t.Run("safe cell never captures", func(t *testing.T) {
		e, s := newTestMatch(2)
		place(t, s, 0, ZoneMainPath, 5, NoIndex)
		place(t, s, 4, ZoneMainPath, 8, NoIndex)

		step, _ := e.Apply(s, 0, 0, 3)
		require.Nil(t, step.Captured)
		require.Equal(t, ZoneMainPath, s.Pawn(4).Zone())
	})

	t.Run("entering from home onto occupied entry is safe", func(t *testing.T) {
		e, s := newTestMatch(2)
		place(t, s, 4, ZoneMainPath, 0, NoIndex)
		step, _ := e.Apply(s, 0, 0, 6)
		require.Nil(t, step.Captured)
	})

	t.Run("own pawns are never captured", func(t *testing.T) {
		e, s := newTestMatch(2)
		place(t, s, 0, ZoneMainPath, 10, NoIndex)
		place(t, s, 1, ZoneMainPath, 12, NoIndex)
		step, _ := e.Apply(s, 0, 0, 2)
		require.Nil(t, step.Captured)
		require.Equal(t, ZoneMainPath, s.Pawn(1).Zone())
	})

	t.Run("at most one capture, lowest id first", func(t *testing.T) {
		e, s := newTestMatch(2)
		place(t, s, 0, ZoneMainPath, 40, NoIndex)
		place(t, s, 5, ZoneMainPath, 44, NoIndex)
		step, _ := e.Apply(s, 0, 0, 4)
		require.Equal(t, int32(5), step.Captured.PawnID)
		require.Equal(t, int32(1), step.ExtraTurns)
	})
}

func TestFinishAndWin(t *testing.T) {
	e, s := newTestMatch(3)
	place(t, s, 0, ZoneFinished, NoIndex, 5)
	place(t, s, 1, ZoneFinished, NoIndex, 5)
	place(t, s, 2, ZoneFinished, NoIndex, 5)
	place(t, s, 3, ZoneHomeLane, NoIndex, 2)

	step, code := e.Apply(s, 0, 3, 3)
	require.Equal(t, MoveOK, code)
	require.True(t, step.Finished)
	require.True(t, step.PlayerFinished)
	require.False(t, step.MatchOver)
	require.Equal(t, []int32{0}, s.FinishOrder)
	require.Equal(t, int32(1), s.PendingExtraTurns)

	require.False(t, s.markFinished(0), "never appended twice")

	// 玩家1 完成后只剩玩家2, 自动补入并结束
	for id := int32(4); id < 7; id++ {
		place(t, s, id, ZoneFinished, NoIndex, 5)
	}
	place(t, s, 7, ZoneMainPath, 11, NoIndex)
	step, _ = e.Apply(s, 1, 7, 6)
	require.True(t, step.PlayerFinished)
	require.True(t, step.MatchOver)
	require.True(t, s.Over)
	require.Equal(t, []int32{0, 1, 2}, s.FinishOrder)
}

func TestApplyRoll(t *testing.T) {
	e, s := newTestMatch(2)

	res := e.ApplyRoll(s, 0, 6)
	require.True(t, res.ExtraTurn)
	require.Equal(t, int32(1), s.ConsecutiveSixes)
	require.Equal(t, int32(1), s.PendingExtraTurns)
	require.Equal(t, PhaseAwaitMove, s.Phase)

	e.ApplyRoll(s, 0, 6)
	require.Equal(t, int32(2), s.PendingExtraTurns)

	res = e.ApplyRoll(s, 0, 6)
	require.True(t, res.Forfeit)
	require.Zero(t, s.PendingExtraTurns)

	e.ApplyRoll(s, 0, 4)
	require.Zero(t, s.ConsecutiveSixes)

	t.Run("six without pawns outside lane grants nothing", func(t *testing.T) {
		e, s := newTestMatch(2)
		for id := int32(0); id < 4; id++ {
			place(t, s, id, ZoneHomeLane, NoIndex, 1)
		}
		res := e.ApplyRoll(s, 0, 6)
		require.False(t, res.ExtraTurn)
		require.Zero(t, s.PendingExtraTurns)
	})
}

func TestAdvanceTurnSkipsOutPlayers(t *testing.T) {
	for players := int32(2); players <= MaxPlayers; players++ {
		for out := int32(0); out < 1<<players; out++ {
			e, s := newTestMatch(players)
			for p := int32(0); p < players; p++ {
				if out&(1<<p) == 0 {
					continue
				}
				if p%2 == 0 {
					s.FinishOrder = append(s.FinishOrder, p)
				} else {
					s.SetDisconnected(p, true)
				}
			}
			for turn := int32(0); turn < players; turn++ {
				s.Turn = turn
				next := e.AdvanceTurn(s.Clone())
				if next < 0 {
					require.Empty(t, s.ActivePlayers())
					continue
				}
				assert.False(t, s.IsFinished(next), "players=%d out=%b turn=%d", players, out, turn)
				assert.False(t, s.IsDisconnected(next), "players=%d out=%b turn=%d", players, out, turn)
			}
		}
	}
}

func TestAdvanceTurnResetsCounters(t *testing.T) {
	e, s := newTestMatch(3)
	s.ConsecutiveSixes, s.PendingExtraTurns, s.LastRoll, s.Phase = 2, 1, 6, PhaseAwaitMove
	require.Equal(t, int32(1), e.AdvanceTurn(s))
	require.Zero(t, s.ConsecutiveSixes)
	require.Zero(t, s.PendingExtraTurns)
	require.Zero(t, s.LastRoll)
	require.Equal(t, PhaseAwaitRoll, s.Phase)

	s.PendingExtraTurns, s.ConsecutiveSixes = 1, 1
	require.True(t, e.GrantExtraTurn(s))
	require.Equal(t, int32(1), s.Turn)
	require.Equal(t, int32(1), s.ConsecutiveSixes, "same player keeps the six streak")
	require.False(t, e.GrantExtraTurn(s))
}

func TestLeaveAndRanking(t *testing.T) {
	_, s := newTestMatch(4)
	s.FinishOrder = []int32{2}
	require.True(t, s.MarkLeft(0))
	require.False(t, s.MarkLeft(0))
	require.False(t, s.MarkLeft(2), "finished player keeps rank")
	require.False(t, s.CheckOver())

	require.True(t, s.MarkLeft(3))
	require.True(t, s.CheckOver())
	require.Equal(t, []int32{2, 1}, s.FinishOrder)
	require.Equal(t, []int32{2, 1, 3, 0}, s.Ranking())
}

func TestPawnCodecRoundTrip(t *testing.T) {
	e, s := newTestMatch(4)
	place(t, s, 0, ZoneMainPath, 0, NoIndex)
	place(t, s, 1, ZoneHomeLane, NoIndex, 4)
	place(t, s, 2, ZoneFinished, NoIndex, 5)
	place(t, s, 9, ZoneMainPath, 51, NoIndex)

	encoded := EncodePawns(s.Pawns)
	require.Contains(t, encoded, "0:1:0:-1:0:0")
	require.Contains(t, encoded, "2:3:-1:5:1:1")

	_, other := newTestMatch(4)
	require.NoError(t, other.RestorePawns(encoded, e.Board().RingSize()))
	for i, p := range s.Pawns {
		require.Equal(t, p.Position(), other.Pawns[i].Position(), "pawn %d", i)
	}

	t.Run("bad record rejects whole table", func(t *testing.T) {
		_, fresh := newTestMatch(4)
		err := fresh.RestorePawns("0:1:3:-1:0:0;1:2:-1:9:1:0", 52)
		require.Error(t, err)
		require.Equal(t, ZoneHome, fresh.Pawn(0).Zone())
	})

	t.Run("table must cover every pawn once", func(t *testing.T) {
		_, fresh := newTestMatch(4)
		require.Error(t, fresh.RestorePawns("0:1:3:-1:0:0", 52))

		parts := strings.Split(encoded, ";")
		require.Error(t, fresh.RestorePawns(strings.Join(parts[:len(parts)-1], ";"), 52))

		dup := slices.Clone(parts)
		dup[1] = parts[0]
		require.Error(t, fresh.RestorePawns(strings.Join(dup, ";"), 52))
		require.Equal(t, ZoneHome, fresh.Pawn(0).Zone())
		require.NoError(t, fresh.RestorePawns(encoded, 52))
	})

	t.Run("flags must agree with zone", func(t *testing.T) {
		_, err := DecodePawns("0:3:-1:5:1:0")
		require.Error(t, err)
		_, err = DecodePawns("0:1:2")
		require.Error(t, err)
	})
}

func TestSnapshotFields(t *testing.T) {
	e, s := newTestMatch(3)
	e.ApplyRoll(s, 0, 6)
	_, _ = e.Apply(s, 0, 0, 6)
	s.FinishOrder = []int32{2}
	s.SetBot(1, true)

	snap := s.Snapshot()
	start := time.UnixMilli(1_700_000_000_500)
	snap.SetTimer(start, 10*time.Second)

	fields := snap.Fields()
	for _, k := range []string{"turn", "roll", "phase", "sixes", "extraTurns", "pawnStates", "finishOrder", "timerStart", "timerDuration"} {
		require.Contains(t, fields, k)
	}
	require.Equal(t, "2", fields["finishOrder"])

	back, err := SnapshotFromFields(fields)
	require.NoError(t, err)
	require.Equal(t, snap, back)

	_, restored := newTestMatch(3)
	require.NoError(t, restored.Restore(back, 52))
	require.Equal(t, s.Snapshot(), restored.Snapshot())

	_, err = SnapshotFromFields(map[string]string{"turn": "1"})
	require.Error(t, err)

	_, wrong := newTestMatch(2)
	require.Error(t, wrong.Restore(back, 52))
}

func TestSnapshotRemaining(t *testing.T) {
	snap := &Snapshot{}
	start := time.Now()
	snap.SetTimer(start, 10*time.Second)

	left := snap.Remaining(start.Add(4*time.Second), 2*time.Second, time.Second)
	require.InDelta(t, float64(8*time.Second), float64(left), float64(10*time.Millisecond))

	left = snap.Remaining(start.Add(time.Minute), 2*time.Second, time.Second)
	require.Equal(t, time.Second, left)

	require.Equal(t, time.Second, (&Snapshot{}).Remaining(start, 0, time.Second))
}

func TestRecentSet(t *testing.T) {
	r := NewRecentSet(3)
	for _, id := range []int64{1, 2, 3} {
		require.True(t, r.Add(id))
	}
	require.False(t, r.Add(2))
	require.True(t, r.Add(4))
	require.False(t, r.Contains(1), "oldest evicted")
	require.True(t, r.Contains(2))
	require.Equal(t, 3, r.Len())

	r.Clear()
	require.Zero(t, r.Len())
	require.Equal(t, int64(4), r.High())
}

func TestParseBoard(t *testing.T) {
	b, err := ParseBoard([]byte(`
ring_size: 52
entry_cells: [0, 13, 26, 39]
home_entry_cells: [50, 11, 24, 37]
safe_cells: [0, 8, 13, 21, 26, 34, 39, 47]
`))
	require.NoError(t, err)
	require.True(t, b.IsSafe(21))
	require.False(t, b.IsSafe(20))
	require.Equal(t, int32(24), b.HomeEntryCell(2))

	_, err = ParseBoard([]byte("ring_size: 52\nentry_cells: [0]\n"))
	require.Error(t, err)
	_, err = ParseBoard([]byte("ring_size: 10\nentry_cells: [0,1,2,3]\nhome_entry_cells: [50,1,2,3]\n"))
	require.Error(t, err)
}
