package server

import (
	"github.com/google/wire"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/internal/transport/websocket"
)

// RelaySet is relay server providers.
var RelaySet = wire.NewSet(NewRelayServer)

// PeerSet is peer transport providers.
var PeerSet = wire.NewSet(NewPeerClient, wire.Bind(new(transport.Transport), new(*websocket.Client)))

func NewRelayServer(c *conf.Server, a *conf.Auth) *websocket.Server {
	return websocket.NewRelay(c, a)
}

func NewPeerClient(c *conf.Server) (*websocket.Client, error) {
	return websocket.NewPeerClient(c)
}
