package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var errNilMessage = errors.New("protocol: nil message")

type envelope struct {
	Kind Kind               `msgpack:"k"`
	Body msgpack.RawMessage `msgpack:"b"`
}

// Encode 编码为 msgpack 信封
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errNilMessage
	}
	body, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %v: %w", m.Kind(), err)
	}
	return msgpack.Marshal(&envelope{Kind: m.Kind(), Body: body})
}

// Decode 解码信封并还原具体消息类型
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	m, err := newMessage(env.Kind)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(env.Body, m); err != nil {
		return nil, fmt.Errorf("protocol: decode %v: %w", env.Kind, err)
	}
	return m, nil
}
