package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/internal/biz/authority"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

func sampleSnapshot() *model.Snapshot {
	e := model.NewEngine(model.DefaultBoard())
	s := model.NewMatchState(3, model.DefaultRecentCap)
	e.ApplyRoll(s, 0, 6)
	_, _ = e.Apply(s, 0, 0, 6)
	s.MarkLeft(2)
	s.SetBot(1, true)
	snap := s.Snapshot()
	snap.SetTimer(time.UnixMilli(1_700_000_000_250), 10*time.Second)
	return snap
}

func newRedisRepo(t *testing.T) (authority.SnapshotRepo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c := &conf.Data{Redis: &conf.Redis{Addr: mr.Addr(), KeyPrefix: "test:", TTL: conf.Seconds(60)}}
	d, cleanup, err := NewData(c, NewRedis(c))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return NewSnapshotRepo(d, c), mr
}

func TestRedisSnapshotRepo(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	got, err := repo.Load(ctx, "m1")
	require.NoError(t, err)
	require.Nil(t, got)

	snap := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, "m1", snap))
	require.Equal(t, 60*time.Second, mr.TTL("test:m1"))
	require.Equal(t, "0", mr.HGet("test:m1", model.KeyTurn))
	require.Equal(t, "2", mr.HGet("test:m1", model.KeyLeaveOrder))

	got, err = repo.Load(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, snap, got)

	require.NoError(t, repo.Delete(ctx, "m1"))
	require.False(t, mr.Exists("test:m1"))
}

func TestRedisSnapshotRepoUnavailable(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Error(t, repo.Save(ctx, "m1", sampleSnapshot()))
	_, err := repo.Load(ctx, "m1")
	require.Error(t, err)
}

func TestMemorySnapshotRepo(t *testing.T) {
	ctx := context.Background()
	d, cleanup, err := NewData(&conf.Data{}, NewRedis(&conf.Data{}))
	require.NoError(t, err)
	defer cleanup()

	repo := NewSnapshotRepo(d, nil)
	require.IsType(t, &MemorySnapshotRepo{}, repo)

	snap := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, "m1", snap))
	got, err := repo.Load(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, snap, got)

	require.NoError(t, repo.Delete(ctx, "m1"))
	got, err = repo.Load(ctx, "m1")
	require.NoError(t, err)
	require.Nil(t, got)
}
