package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/yola1107/ludo-arbiter/internal/biz/authority"
	"github.com/yola1107/ludo-arbiter/internal/biz/match"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/work"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewBoard, NewWorkStore, NewAutoPlayer, NewAuthority)

// NewBoard 未配置棋盘文件时使用标准棋盘. 棋盘只在启动时加载
func NewBoard(c *conf.Match) (model.Board, error) {
	if c.Board == "" {
		return model.DefaultBoard(), nil
	}
	b, err := model.LoadBoard(c.Board)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewWorkStore 对局独占的任务循环和定时器
func NewWorkStore(c *conf.Match) (*work.Store, func(), error) {
	s := work.NewStore(context.Background(), work.WithPoolSize(c.PoolSize))
	if err := s.Start(); err != nil {
		return nil, nil, err
	}
	return s, s.Stop, nil
}

// MatchID 对局ID来自中继凭证
type MatchID interface {
	Match() string
}

// Reconnector 支持断线重连通知的传输
type Reconnector interface {
	OnReconnect(f func())
}

func NewAuthority(c *conf.LiveMatch, d *conf.Data, board model.Board, tr transport.Transport,
	store *work.Store, repo authority.SnapshotRepo, p *AutoPlayer) *authority.Authority {
	matchID := ""
	if m, ok := tr.(MatchID); ok {
		matchID = m.Match()
	}
	opts := []authority.Option{authority.WithMatchOptions(match.WithPresenter(p))}
	if d != nil && d.Redis != nil && d.Redis.KeepAfterEnd.Duration > 0 {
		opts = append(opts, authority.WithKeepAfterEnd(d.Redis.KeepAfterEnd.Duration))
	}
	a := authority.New(matchID, board, c, tr, store.Loop(), store.GetTimer(), repo, opts...)
	p.Bind(a)
	if r, ok := tr.(Reconnector); ok {
		r.OnReconnect(func() {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			remaining, err := a.Resume(ctx)
			if err != nil {
				log.Warnf("resume failed: %v", err)
				return
			}
			log.Infof("resumed. remaining=%v", remaining)
		})
	}
	log.Infof("authority ready. %s", a.Desc())
	return a
}
