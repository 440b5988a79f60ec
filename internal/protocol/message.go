package protocol

import (
	"fmt"

	"github.com/yola1107/ludo-arbiter/internal/model"
)

// Kind 消息类型
type Kind uint8

const (
	KindRollRequest        Kind = iota + 1 // client -> host
	KindRollFact                           // host -> all
	KindMoveRequest                        // client -> host
	KindMoveFact                           // host -> all
	KindTurnFact                           // host -> all
	KindTimerStart                         // host -> all
	KindTimerStop                          // host -> all
	KindAdvanceTurnRequest                 // client -> host
	KindSyncRequest                        // client -> host
	KindStateFact                          // host -> all
)

var kindNames = map[Kind]string{
	KindRollRequest:        "RollRequest",
	KindRollFact:           "RollFact",
	KindMoveRequest:        "MoveRequest",
	KindMoveFact:           "MoveFact",
	KindTurnFact:           "TurnFact",
	KindTimerStart:         "TimerStart",
	KindTimerStop:          "TimerStop",
	KindAdvanceTurnRequest: "AdvanceTurnRequest",
	KindSyncRequest:        "SyncRequest",
	KindStateFact:          "StateFact",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message 所有协议消息
type Message interface {
	Kind() Kind
}

// Fact 主机发出的事实, 带有主机分配的唯一ID
type Fact interface {
	Message
	FactID() int64
}

type RollRequest struct {
	Player int32 `msgpack:"p"`
}

type RollFact struct {
	ID     int64 `msgpack:"id"`
	Player int32 `msgpack:"p"`
	Value  int32 `msgpack:"v"`
}

// MoveRequest 携带客户端看到的点数, 主机以自己确认的点数为准
type MoveRequest struct {
	Player int32 `msgpack:"p"`
	PawnID int32 `msgpack:"pawn"`
	Roll   int32 `msgpack:"r"`
}

type MoveFact struct {
	MoveID int64 `msgpack:"id"`
	Player int32 `msgpack:"p"`
	PawnID int32 `msgpack:"pawn"`
	Roll   int32 `msgpack:"r"`
}

// TurnFact 换人或额外回合. Sync 为主机换人后的全量状态, 接收方据此重同步
type TurnFact struct {
	ID   int64           `msgpack:"id"`
	Next int32           `msgpack:"n"`
	Sync *model.Snapshot `msgpack:"s"`
}

type TimerStart struct {
	ID         int64 `msgpack:"id"`
	Player     int32 `msgpack:"p"`
	Phase      int32 `msgpack:"ph"`
	DurationMs int64 `msgpack:"d"`
	StartAtMs  int64 `msgpack:"at"`
}

type TimerStop struct {
	ID     int64 `msgpack:"id"`
	Player int32 `msgpack:"p"`
}

type AdvanceTurnRequest struct {
	Player int32 `msgpack:"p"`
}

type SyncRequest struct {
	Player int32 `msgpack:"p"`
}

// StateFact 全量状态, 用于重连、迁移和对局结束
type StateFact struct {
	ID    int64           `msgpack:"id"`
	State *model.Snapshot `msgpack:"s"`
}

func (*RollRequest) Kind() Kind        { return KindRollRequest }
func (*RollFact) Kind() Kind           { return KindRollFact }
func (*MoveRequest) Kind() Kind        { return KindMoveRequest }
func (*MoveFact) Kind() Kind           { return KindMoveFact }
func (*TurnFact) Kind() Kind           { return KindTurnFact }
func (*TimerStart) Kind() Kind         { return KindTimerStart }
func (*TimerStop) Kind() Kind          { return KindTimerStop }
func (*AdvanceTurnRequest) Kind() Kind { return KindAdvanceTurnRequest }
func (*SyncRequest) Kind() Kind        { return KindSyncRequest }
func (*StateFact) Kind() Kind          { return KindStateFact }

func (m *RollFact) FactID() int64   { return m.ID }
func (m *MoveFact) FactID() int64   { return m.MoveID }
func (m *TurnFact) FactID() int64   { return m.ID }
func (m *TimerStart) FactID() int64 { return m.ID }
func (m *TimerStop) FactID() int64  { return m.ID }
func (m *StateFact) FactID() int64  { return m.ID }

// IsRequest client -> host 的消息
func IsRequest(m Message) bool {
	switch m.Kind() {
	case KindRollRequest, KindMoveRequest, KindAdvanceTurnRequest, KindSyncRequest:
		return true
	default:
		return false
	}
}

func newMessage(k Kind) (Message, error) {
	switch k {
	case KindRollRequest:
		return &RollRequest{}, nil
	case KindRollFact:
		return &RollFact{}, nil
	case KindMoveRequest:
		return &MoveRequest{}, nil
	case KindMoveFact:
		return &MoveFact{}, nil
	case KindTurnFact:
		return &TurnFact{}, nil
	case KindTimerStart:
		return &TimerStart{}, nil
	case KindTimerStop:
		return &TimerStop{}, nil
	case KindAdvanceTurnRequest:
		return &AdvanceTurnRequest{}, nil
	case KindSyncRequest:
		return &SyncRequest{}, nil
	case KindStateFact:
		return &StateFact{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown kind %d", uint8(k))
	}
}
