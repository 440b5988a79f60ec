package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/internal/conf"
)

func TestNewBoard(t *testing.T) {
	b, err := NewBoard(&conf.Match{})
	require.NoError(t, err)
	require.Equal(t, int32(52), b.RingSize())

	b, err = NewBoard(&conf.Match{Board: filepath.Join("..", "..", "configs", "board.yaml")})
	require.NoError(t, err)
	require.Equal(t, int32(52), b.RingSize())

	bad := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ring_size: 3\n"), 0o644))
	_, err = NewBoard(&conf.Match{Board: bad})
	require.Error(t, err)
}

func TestNewAutoPlayer(t *testing.T) {
	require.False(t, NewAutoPlayer(nil).auto)
	require.False(t, NewAutoPlayer(&conf.Server{}).auto)
	require.True(t, NewAutoPlayer(&conf.Server{Peer: &conf.Peer{AutoPlay: true}}).auto)

	// 未绑定时只打印
	p := NewAutoPlayer(&conf.Server{Peer: &conf.Peer{AutoPlay: true}})
	p.OnTurn(0, 0)
	p.OnRoll(0, 3)
	p.OnMatchEnd([]int32{0, 1})
}

func TestNewWorkStore(t *testing.T) {
	s, cleanup, err := NewWorkStore(conf.DefaultMatch())
	require.NoError(t, err)
	require.NotNil(t, s.Loop())
	cleanup()
}
