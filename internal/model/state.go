package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Phase 回合阶段
type Phase int32

const (
	PhaseAwaitRoll Phase = iota // 等待掷骰
	PhaseAwaitMove              // 等待选子
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitRoll:
		return "AwaitRoll"
	case PhaseAwaitMove:
		return "AwaitMove"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// MatchState 对局状态. 主机持有权威副本, 其余节点只通过事实更新
type MatchState struct {
	PlayerCount       int32
	Pawns             []*Pawn // 下标即棋子ID
	Turn              int32
	LastRoll          int32 // 0 表示本回合尚未掷骰
	Phase             Phase
	ConsecutiveSixes  int32
	PendingExtraTurns int32
	FinishOrder       []int32 // 完赛名次, 只追加
	LeaveOrder        []int32 // 离开顺序, 排在所有在局玩家之后
	Disconnected      map[int32]struct{}
	Bots              map[int32]struct{}
	Processed         *RecentSet
	Over              bool
}

func NewMatchState(playerCount int32, dedupeCap int) *MatchState {
	s := &MatchState{
		PlayerCount:  playerCount,
		Pawns:        make([]*Pawn, 0, playerCount*PawnsPerPlayer),
		Phase:        PhaseAwaitRoll,
		Disconnected: make(map[int32]struct{}),
		Bots:         make(map[int32]struct{}),
		Processed:    NewRecentSet(dedupeCap),
	}
	for owner := int32(0); owner < playerCount; owner++ {
		for k := int32(0); k < PawnsPerPlayer; k++ {
			s.Pawns = append(s.Pawns, NewPawn(owner*PawnsPerPlayer+k, owner))
		}
	}
	return s
}

func (s *MatchState) Desc() string {
	return fmt.Sprintf("[turn:%d %v roll:%d sixes:%d extra:%d finish:%v leave:%v over:%v]",
		s.Turn, s.Phase, s.LastRoll, s.ConsecutiveSixes, s.PendingExtraTurns, s.FinishOrder, s.LeaveOrder, s.Over)
}

func (s *MatchState) ValidPlayer(player int32) bool {
	return player >= 0 && player < s.PlayerCount
}

func (s *MatchState) Pawn(id int32) *Pawn {
	if id < 0 || int(id) >= len(s.Pawns) {
		return nil
	}
	return s.Pawns[id]
}

// PawnsOf 按 ID 升序
func (s *MatchState) PawnsOf(player int32) []*Pawn {
	if !s.ValidPlayer(player) {
		return nil
	}
	start := player * PawnsPerPlayer
	return s.Pawns[start : start+PawnsPerPlayer]
}

func (s *MatchState) IsFinished(player int32) bool { return slices.Contains(s.FinishOrder, player) }
func (s *MatchState) HasLeft(player int32) bool    { return slices.Contains(s.LeaveOrder, player) }

func (s *MatchState) IsDisconnected(player int32) bool {
	_, ok := s.Disconnected[player]
	return ok
}

func (s *MatchState) IsBot(player int32) bool {
	_, ok := s.Bots[player]
	return ok
}

// IsRanked 已完赛或已离开
func (s *MatchState) IsRanked(player int32) bool {
	return s.IsFinished(player) || s.HasLeft(player)
}

// IsOut 不再参与轮转
func (s *MatchState) IsOut(player int32) bool {
	return s.IsRanked(player) || s.IsDisconnected(player)
}

// SetBot 标记/取消托管, 返回是否有变化
func (s *MatchState) SetBot(player int32, on bool) bool {
	if on == s.IsBot(player) {
		return false
	}
	if on {
		s.Bots[player] = struct{}{}
	} else {
		delete(s.Bots, player)
	}
	return true
}

func (s *MatchState) SetDisconnected(player int32, on bool) bool {
	if on == s.IsDisconnected(player) {
		return false
	}
	if on {
		s.Disconnected[player] = struct{}{}
	} else {
		delete(s.Disconnected, player)
	}
	return true
}

// ActivePlayers 仍在参与轮转的玩家, 升序
func (s *MatchState) ActivePlayers() []int32 {
	var out []int32
	for p := int32(0); p < s.PlayerCount; p++ {
		if !s.IsOut(p) {
			out = append(out, p)
		}
	}
	return out
}

// NextActive 从 Turn+1 开始循环查找下一个在局玩家, 最多扫描一圈, 没有返回 -1
func (s *MatchState) NextActive() int32 {
	for i := int32(1); i <= s.PlayerCount; i++ {
		p := (s.Turn + i) % s.PlayerCount
		if !s.IsOut(p) {
			return p
		}
	}
	return -1
}

// HasPawnOutsideHomeLane 基地或公共路径上还有棋子
func (s *MatchState) HasPawnOutsideHomeLane(player int32) bool {
	return lo.SomeBy(s.PawnsOf(player), func(p *Pawn) bool {
		return p.Zone() == ZoneHome || p.Zone() == ZoneMainPath
	})
}

func (s *MatchState) allPawnsFinished(player int32) bool {
	pawns := s.PawnsOf(player)
	return len(pawns) > 0 && lo.EveryBy(pawns, (*Pawn).IsFinished)
}

// markFinished 追加到名次, 幂等
func (s *MatchState) markFinished(player int32) bool {
	if s.IsRanked(player) {
		return false
	}
	s.FinishOrder = append(s.FinishOrder, player)
	return true
}

// MarkLeft 玩家离开, 排名在所有在局玩家之后. 已有名次时返回 false
func (s *MatchState) MarkLeft(player int32) bool {
	s.SetDisconnected(player, true)
	s.SetBot(player, false)
	if s.IsRanked(player) {
		return false
	}
	s.LeaveOrder = append(s.LeaveOrder, player)
	return true
}

// CheckOver 只剩一个在局玩家时补入名次并结束对局
func (s *MatchState) CheckOver() bool {
	if s.Over {
		return true
	}
	if int32(len(s.FinishOrder)+len(s.LeaveOrder)) < s.PlayerCount-1 {
		return false
	}
	for p := int32(0); p < s.PlayerCount; p++ {
		if !s.IsRanked(p) {
			s.FinishOrder = append(s.FinishOrder, p)
		}
	}
	s.Over = true
	return true
}

// Ranking 最终名次: 完赛顺序, 然后是后离开的玩家, 最先离开的排最后
func (s *MatchState) Ranking() []int32 {
	out := append([]int32{}, s.FinishOrder...)
	for p := int32(0); p < s.PlayerCount; p++ {
		if !s.IsRanked(p) {
			out = append(out, p)
		}
	}
	return append(out, lo.Reverse(append([]int32{}, s.LeaveOrder...))...)
}

// Clone 深拷贝, 去重集合共享
func (s *MatchState) Clone() *MatchState {
	cp := *s
	cp.Pawns = lo.Map(s.Pawns, func(p *Pawn, _ int) *Pawn { return p.clone() })
	cp.FinishOrder = slices.Clone(s.FinishOrder)
	cp.LeaveOrder = slices.Clone(s.LeaveOrder)
	cp.Disconnected = lo.Assign(s.Disconnected)
	cp.Bots = lo.Assign(s.Bots)
	return &cp
}

func sortedKeys(m map[int32]struct{}) []int32 {
	if len(m) == 0 {
		return nil
	}
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
