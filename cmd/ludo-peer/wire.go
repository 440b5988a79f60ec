//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/data"
	"github.com/yola1107/ludo-arbiter/internal/server"
	"github.com/yola1107/ludo-arbiter/internal/service"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Match, *conf.LiveMatch, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.PeerSet, data.ProviderSet, service.ProviderSet, newApp))
}
