package main

import (
	"flag"
	xhttp "net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/transport/websocket"
	"github.com/yola1107/ludo-arbiter/library/log/zap"
)

var (
	Name     = conf.Name + "-relay"
	Version  = conf.Version
	flagconf string // -conf path
	pprof    string
	issue    bool
	matchID  string
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, e.g. -conf config.yaml")
	flag.StringVar(&pprof, "pprof", "", "pprof listen address, empty to disable")
	flag.BoolVar(&issue, "issue", false, "issue seat tokens for one match and exit")
	flag.StringVar(&matchID, "match", "", "match id for -issue, generated when empty")
}

func newApp(logger log.Logger, ws *websocket.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			ws,
		),
	)
}

func main() {
	flag.Parse()

	c, bc, lc := conf.LoadConfig(flagconf)
	defer c.Close()

	if issue {
		if err := issueTokens(os.Stdout, bc, matchID); err != nil {
			panic(err)
		}
		return
	}

	if pprof != "" {
		go func() {
			log.Fatal(xhttp.ListenAndServe(pprof, nil))
		}()
	}

	logger := zap.NewLogger(lc)
	log.SetLogger(logger)
	defer logger.Close()

	if err := conf.WatchConfig(c, nil, lc, logger); err != nil {
		panic(err)
	}

	app, cleanup, err := wireApp(bc.Server, bc.Auth, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
