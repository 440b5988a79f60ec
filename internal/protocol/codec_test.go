package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/internal/model"
)

func TestTurnFactCarriesSnapshot(t *testing.T) {
	s := model.NewMatchState(2, model.DefaultRecentCap)
	s.FinishOrder = []int32{1}
	fact := &TurnFact{ID: 42, Next: 0, Sync: s.Snapshot()}

	data, err := Encode(fact)
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	got, ok := m.(*TurnFact)
	require.True(t, ok)
	require.Equal(t, int64(42), got.FactID())
	require.Equal(t, fact.Sync.PawnStates, got.Sync.PawnStates)
	require.Equal(t, []int32{1}, got.Sync.FinishOrder)
}

func TestDecodeKeepsConcreteType(t *testing.T) {
	msgs := []Message{
		&RollRequest{Player: 1},
		&MoveFact{MoveID: 7, Player: 1, PawnID: 5, Roll: 3},
		&TimerStart{ID: 8, Player: 1, Phase: 1, DurationMs: 10000, StartAtMs: 1},
		&AdvanceTurnRequest{Player: 2},
	}
	for _, m := range msgs {
		data, err := Encode(m)
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, m, got, m.Kind().String())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	require.Error(t, err)

	_, err = Encode(nil)
	require.Error(t, err)

	require.True(t, IsRequest(&SyncRequest{}))
	require.False(t, IsRequest(&StateFact{}))
	require.Equal(t, "Kind(99)", Kind(99).String())
}
