package match

import (
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/library/work"
)

// Repo 抽象接口
type Repo interface {
	GetTimer() work.Scheduler
	GetConfig() *conf.Match
	IsHost() bool
	// NextFactID 主机分配事实ID, 所有事实共用一个序列
	NextFactID() int64
	// Publish 主机在本地应用事实后调用: 持久化快照并广播
	Publish(fact protocol.Fact)
}
