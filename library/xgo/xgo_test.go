package xgo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitInt32(t *testing.T) {
	vs, err := SplitInt32(JoinInt32([]int32{3, 0, 2}, ","), ",")
	require.NoError(t, err)
	require.Equal(t, []int32{3, 0, 2}, vs)

	vs, err = SplitInt32("", ",")
	require.NoError(t, err)
	require.Empty(t, vs)

	_, err = SplitInt32("1,x", ",")
	require.Error(t, err)
}

func TestRecoverFromError(t *testing.T) {
	var got any
	func() {
		defer RecoverFromError(func(e any) { got = e })
		panic("boom")
	}()
	require.Equal(t, "boom", got)
}
