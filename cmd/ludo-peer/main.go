package main

import (
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/biz/authority"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/transport/websocket"
	"github.com/yola1107/ludo-arbiter/library/log/zap"
)

var (
	Name     = conf.Name + "-peer"
	Version  = conf.Version
	flagconf string // -conf path
	token    string
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, e.g. -conf config.yaml")
	flag.StringVar(&token, "token", "", "seat token, overrides server.peer.token")
}

// newApp 先注册对局回调再连接中继
func newApp(logger log.Logger, a *authority.Authority, client *websocket.Client) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{"match": client.Match()}),
		kratos.Logger(logger),
		kratos.Server(
			a,
			client,
		),
	)
}

func main() {
	flag.Parse()

	c, bc, lc := conf.LoadConfig(flagconf)
	defer c.Close()

	if token != "" && bc.Server.Peer != nil {
		bc.Server.Peer.Token = token
	}

	logger := zap.NewLogger(lc)
	log.SetLogger(logger)
	defer logger.Close()

	live := conf.NewLiveMatch(bc.Match)
	if err := conf.WatchConfig(c, live, lc, logger); err != nil {
		panic(err)
	}

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Match, live, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
