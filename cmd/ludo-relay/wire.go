//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/server"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Auth, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.RelaySet, newApp))
}
