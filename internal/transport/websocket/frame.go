package websocket

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yola1107/ludo-arbiter/internal/transport"
)

// Op 中继帧类型. ToHost/Broadcast 由节点发出, Deliver/Membership 由中继发出
type Op uint8

const (
	OpPing Op = iota + 1
	OpPong
	OpToHost
	OpBroadcast
	OpDeliver
	OpMembership
)

func (op Op) String() string {
	switch op {
	case OpPing:
		return "Ping"
	case OpPong:
		return "Pong"
	case OpToHost:
		return "ToHost"
	case OpBroadcast:
		return "Broadcast"
	case OpDeliver:
		return "Deliver"
	case OpMembership:
		return "Membership"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// Frame 中继层的信封, Body 为 protocol 编码后的消息, 中继不解析
type Frame struct {
	Op      Op                    `msgpack:"op"`
	From    *transport.Peer       `msgpack:"from,omitempty"`
	Body    []byte                `msgpack:"body,omitempty"`
	Members *transport.Membership `msgpack:"members,omitempty"`
}

func encodeFrame(f *Frame) ([]byte, error) {
	return msgpack.Marshal(f)
}

func decodeFrame(data []byte) (*Frame, error) {
	f := &Frame{}
	if err := msgpack.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if f.Op == 0 {
		return nil, fmt.Errorf("frame without op")
	}
	return f, nil
}
