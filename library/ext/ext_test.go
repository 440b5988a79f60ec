package ext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandInt(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := RandInt[int32](1, 7)
		require.GreaterOrEqual(t, v, int32(1))
		require.Less(t, v, int32(7))
	}
	require.Equal(t, 5, RandInt(5, 5))
}

func TestPick(t *testing.T) {
	_, ok := Pick([]int32{})
	require.False(t, ok)

	v, ok := Pick([]string{"a"})
	require.True(t, ok)
	require.Equal(t, "a", v)
}

type timing struct {
	Roll  int64
	Names []string
}

func TestDiffAndCopy(t *testing.T) {
	a := &timing{Roll: 15, Names: []string{"x"}}
	b := &timing{Roll: 10, Names: []string{"x", "y"}}

	changes, text, err := DiffLog(a, b)
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	require.Contains(t, text, "Roll")

	require.NoError(t, DeepCopy(a, b))
	require.Equal(t, int64(10), a.Roll)
	require.Equal(t, []string{"x", "y"}, a.Names)

	b.Names[0] = "z"
	require.Equal(t, "x", a.Names[0])
}
