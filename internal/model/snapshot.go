package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/yola1107/ludo-arbiter/library/xgo"
)

// SnapshotVersion 快照格式版本
const SnapshotVersion int32 = 1

// 快照字段名, 与房间属性保持一致
const (
	KeyVersion       = "version"
	KeyPlayers       = "players"
	KeyTurn          = "turn"
	KeyRoll          = "roll"
	KeyPhase         = "phase"
	KeySixes         = "sixes"
	KeyExtraTurns    = "extraTurns"
	KeyPawnStates    = "pawnStates"
	KeyFinishOrder   = "finishOrder"
	KeyLeaveOrder    = "leaveOrder"
	KeyDisconnected  = "disconnected"
	KeyBots          = "bots"
	KeyOver          = "over"
	KeyTimerStart    = "timerStart"
	KeyTimerDuration = "timerDuration"
)

const listSep = ","

// Snapshot 对局快照, 用于持久化和全量同步
type Snapshot struct {
	Version       int32   `msgpack:"v"`
	Players       int32   `msgpack:"players"`
	Turn          int32   `msgpack:"turn"`
	Roll          int32   `msgpack:"roll"`
	Phase         int32   `msgpack:"phase"`
	Sixes         int32   `msgpack:"sixes"`
	ExtraTurns    int32   `msgpack:"extra"`
	PawnStates    string  `msgpack:"pawns"`
	FinishOrder   []int32 `msgpack:"finish"`
	LeaveOrder    []int32 `msgpack:"leave"`
	Disconnected  []int32 `msgpack:"disc"`
	Bots          []int32 `msgpack:"bots"`
	Over          bool    `msgpack:"over"`
	TimerStart    float64 `msgpack:"ts"` // unix 秒, 0 表示无计时
	TimerDuration float32 `msgpack:"td"` // 秒
}

// Snapshot 当前状态快照, 不含计时信息
func (s *MatchState) Snapshot() *Snapshot {
	return &Snapshot{
		Version:      SnapshotVersion,
		Players:      s.PlayerCount,
		Turn:         s.Turn,
		Roll:         s.LastRoll,
		Phase:        int32(s.Phase),
		Sixes:        s.ConsecutiveSixes,
		ExtraTurns:   s.PendingExtraTurns,
		PawnStates:   EncodePawns(s.Pawns),
		FinishOrder:  slices.Clone(s.FinishOrder),
		LeaveOrder:   slices.Clone(s.LeaveOrder),
		Disconnected: sortedKeys(s.Disconnected),
		Bots:         sortedKeys(s.Bots),
		Over:         s.Over,
	}
}

// Restore 用快照覆盖状态, 去重集合保留. 快照非法时不做修改
func (s *MatchState) Restore(snap *Snapshot, ring int32) error {
	if snap == nil {
		return errors.New("snapshot: nil")
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("snapshot: unsupported version %d", snap.Version)
	}
	if snap.Players != s.PlayerCount {
		return fmt.Errorf("snapshot: player count %d, match has %d", snap.Players, s.PlayerCount)
	}
	if !s.ValidPlayer(snap.Turn) {
		return fmt.Errorf("snapshot: invalid turn %d", snap.Turn)
	}
	if snap.Phase != int32(PhaseAwaitRoll) && snap.Phase != int32(PhaseAwaitMove) {
		return fmt.Errorf("snapshot: invalid phase %d", snap.Phase)
	}
	if err := s.RestorePawns(snap.PawnStates, ring); err != nil {
		return err
	}
	s.Turn = snap.Turn
	s.LastRoll = snap.Roll
	s.Phase = Phase(snap.Phase)
	s.ConsecutiveSixes = snap.Sixes
	s.PendingExtraTurns = snap.ExtraTurns
	s.FinishOrder = slices.Clone(snap.FinishOrder)
	s.LeaveOrder = slices.Clone(snap.LeaveOrder)
	s.Disconnected = toSet(snap.Disconnected)
	s.Bots = toSet(snap.Bots)
	s.Over = snap.Over
	return nil
}

func toSet(vs []int32) map[int32]struct{} {
	m := make(map[int32]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

// SetTimer 记录计时起点与时长
func (sn *Snapshot) SetTimer(start time.Time, d time.Duration) {
	if start.IsZero() || d <= 0 {
		sn.TimerStart, sn.TimerDuration = 0, 0
		return
	}
	sn.TimerStart = float64(start.UnixMilli()) / 1000
	sn.TimerDuration = float32(d.Seconds())
}

func (sn *Snapshot) HasTimer() bool {
	return sn.TimerStart > 0 && sn.TimerDuration > 0
}

// TimerStartAt 计时起点, 精确到毫秒
func (sn *Snapshot) TimerStartAt() time.Time {
	return time.UnixMilli(int64(math.Round(sn.TimerStart * 1000)))
}

// Remaining 重连后剩余时间: 起点+时长+宽限-当前, 不低于 minimum
func (sn *Snapshot) Remaining(now time.Time, grace, minimum time.Duration) time.Duration {
	if !sn.HasTimer() {
		return minimum
	}
	d := time.Duration(float64(sn.TimerDuration) * float64(time.Second))
	left := sn.TimerStartAt().Add(d + grace).Sub(now)
	if left < minimum {
		return minimum
	}
	return left
}

// Fields 转换为 key/value, 写入共享存储
func (sn *Snapshot) Fields() map[string]string {
	return map[string]string{
		KeyVersion:       xgo.Int32ToStr(sn.Version),
		KeyPlayers:       xgo.Int32ToStr(sn.Players),
		KeyTurn:          xgo.Int32ToStr(sn.Turn),
		KeyRoll:          xgo.Int32ToStr(sn.Roll),
		KeyPhase:         xgo.Int32ToStr(sn.Phase),
		KeySixes:         xgo.Int32ToStr(sn.Sixes),
		KeyExtraTurns:    xgo.Int32ToStr(sn.ExtraTurns),
		KeyPawnStates:    sn.PawnStates,
		KeyFinishOrder:   xgo.JoinInt32(sn.FinishOrder, listSep),
		KeyLeaveOrder:    xgo.JoinInt32(sn.LeaveOrder, listSep),
		KeyDisconnected:  xgo.JoinInt32(sn.Disconnected, listSep),
		KeyBots:          xgo.JoinInt32(sn.Bots, listSep),
		KeyOver:          strconv.FormatBool(sn.Over),
		KeyTimerStart:    xgo.Float64ToStr(sn.TimerStart),
		KeyTimerDuration: xgo.Float64ToStr(float64(sn.TimerDuration)),
	}
}

// SnapshotFromFields Fields 的逆操作. 缺少 version 的记录按版本 1 处理
func SnapshotFromFields(m map[string]string) (*Snapshot, error) {
	if len(m) == 0 {
		return nil, errors.New("snapshot: empty")
	}
	for _, k := range []string{KeyTurn, KeyPhase, KeyPawnStates} {
		if _, ok := m[k]; !ok {
			return nil, fmt.Errorf("snapshot: missing %q", k)
		}
	}
	sn := &Snapshot{
		Version:       SnapshotVersion,
		Players:       xgo.StrToInt32(m[KeyPlayers]),
		Turn:          xgo.StrToInt32(m[KeyTurn]),
		Roll:          xgo.StrToInt32(m[KeyRoll]),
		Phase:         xgo.StrToInt32(m[KeyPhase]),
		Sixes:         xgo.StrToInt32(m[KeySixes]),
		ExtraTurns:    xgo.StrToInt32(m[KeyExtraTurns]),
		PawnStates:    m[KeyPawnStates],
		TimerStart:    xgo.StrToFloat64(m[KeyTimerStart]),
		TimerDuration: float32(xgo.StrToFloat64(m[KeyTimerDuration])),
	}
	if v, ok := m[KeyVersion]; ok {
		sn.Version = xgo.StrToInt32(v)
	}
	sn.Over, _ = strconv.ParseBool(m[KeyOver])

	var err error
	for key, dst := range map[string]*[]int32{
		KeyFinishOrder:  &sn.FinishOrder,
		KeyLeaveOrder:   &sn.LeaveOrder,
		KeyDisconnected: &sn.Disconnected,
		KeyBots:         &sn.Bots,
	} {
		if *dst, err = xgo.SplitInt32(m[key], listSep); err != nil {
			return nil, fmt.Errorf("snapshot: %s: %w", key, err)
		}
	}
	if sn.Players == 0 {
		if recs, err := DecodePawns(sn.PawnStates); err == nil {
			sn.Players = int32(len(recs) / PawnsPerPlayer)
		}
	}
	return sn, nil
}
