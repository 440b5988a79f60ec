package model

import (
	"github.com/samber/lo"
)

// 移动校验结果
const (
	MoveOK          int32 = iota // 可以移动
	ErrInvalidPawn               // 棋子不存在
	ErrNotOwner                  // 不是自己的棋子
	ErrInvalidRoll               // 点数不在 1..6
	ErrNeedSix                   // 基地棋子需要 6 点
	ErrOvershoot                 // 超出 Home 路径终点
	ErrPawnFinished              // 已到终点
	ErrPlayerOut                 // 玩家已完赛或离开
)

const (
	MinRoll = 1
	MaxRoll = 6
)

// RollResult 掷骰后的计数变化
type RollResult struct {
	Value     int32
	Sixes     int32
	Forfeit   bool // 连续三个6, 本回合作废
	ExtraTurn bool // 6 点奖励一次额外回合
}

// Engine 规则引擎, 所有方法只读写传入的 MatchState
type Engine struct {
	board Board
}

func NewEngine(board Board) *Engine {
	return &Engine{board: board}
}

func (e *Engine) Board() Board { return e.board }

// ApplyRoll 记录点数并更新连6计数与额外回合, 进入选子阶段
func (e *Engine) ApplyRoll(s *MatchState, player, value int32) RollResult {
	res := RollResult{Value: value}
	s.LastRoll = value
	s.Phase = PhaseAwaitMove

	if value != MaxRoll {
		s.ConsecutiveSixes = 0
		return res
	}

	s.ConsecutiveSixes++
	res.Sixes = s.ConsecutiveSixes
	if s.ConsecutiveSixes >= 3 {
		s.PendingExtraTurns = 0
		res.Forfeit = true
		return res
	}
	if s.HasPawnOutsideHomeLane(player) {
		s.PendingExtraTurns++
		res.ExtraTurn = true
	}
	return res
}

// Path 计算棋子按 roll 行走经过的每一格, 最后一格为落点
func (e *Engine) Path(p *Pawn, roll int32) ([]Position, int32) {
	if roll < MinRoll || roll > MaxRoll {
		return nil, ErrInvalidRoll
	}
	ring := e.board.RingSize()

	switch p.Zone() {
	case ZoneHome:
		if roll != MaxRoll {
			return nil, ErrNeedSix
		}
		return []Position{{Zone: ZoneMainPath, Index: e.board.EntryCell(p.Owner())}}, MoveOK

	case ZoneMainPath:
		pos := p.MainIndex()
		dist := (e.board.HomeEntryCell(p.Owner()) - pos + ring) % ring
		path := make([]Position, 0, roll)
		if roll <= dist {
			for i := int32(1); i <= roll; i++ {
				path = append(path, Position{Zone: ZoneMainPath, Index: (pos + i) % ring})
			}
			return path, MoveOK
		}
		for i := int32(1); i <= dist; i++ {
			path = append(path, Position{Zone: ZoneMainPath, Index: (pos + i) % ring})
		}
		for h := int32(0); h <= roll-dist-1; h++ {
			path = append(path, homePosition(h))
		}
		return path, MoveOK

	case ZoneHomeLane:
		if p.HomeIndex()+roll > FinishIndex {
			return nil, ErrOvershoot
		}
		path := make([]Position, 0, roll)
		for h := p.HomeIndex() + 1; h <= p.HomeIndex()+roll; h++ {
			path = append(path, homePosition(h))
		}
		return path, MoveOK

	default:
		return nil, ErrPawnFinished
	}
}

func homePosition(h int32) Position {
	if h == FinishIndex {
		return Position{Zone: ZoneFinished, Index: h}
	}
	return Position{Zone: ZoneHomeLane, Index: h}
}

// CanMove 校验 player 能否用 roll 移动 pawnID
func (e *Engine) CanMove(s *MatchState, player, pawnID, roll int32) (bool, int32) {
	p := s.Pawn(pawnID)
	if p == nil {
		return false, ErrInvalidPawn
	}
	if p.Owner() != player {
		return false, ErrNotOwner
	}
	if s.IsRanked(player) {
		return false, ErrPlayerOut
	}
	if _, code := e.Path(p, roll); code != MoveOK {
		return false, code
	}
	return true, MoveOK
}

// LegalMoves 可移动棋子ID, 升序
func (e *Engine) LegalMoves(s *MatchState, player, roll int32) []int32 {
	return lo.FilterMap(s.PawnsOf(player), func(p *Pawn, _ int) (int32, bool) {
		ok, _ := e.CanMove(s, player, p.ID(), roll)
		return p.ID(), ok
	})
}

// Apply 执行移动: 更新落点, 处理吃子、额外回合与胜负. 校验失败时不修改任何状态
func (e *Engine) Apply(s *MatchState, player, pawnID, roll int32) (*Step, int32) {
	if ok, code := e.CanMove(s, player, pawnID, roll); !ok {
		return nil, code
	}
	p := s.Pawn(pawnID)
	path, _ := e.Path(p, roll)
	to := path[len(path)-1]
	step := &Step{
		PawnID: pawnID,
		Owner:  player,
		Roll:   roll,
		From:   p.Position(),
		To:     to,
		Path:   path,
	}

	switch {
	case p.Zone() == ZoneHome:
		p.enterMain(to.Index)
	case p.Zone() == ZoneMainPath && to.Zone == ZoneMainPath:
		p.moveMain(to.Index)
	case p.Zone() == ZoneMainPath:
		p.enterHomeLane(to.Index)
	default:
		p.moveHome(to.Index)
	}

	if to.Zone == ZoneMainPath {
		e.resolveCapture(s, p, step)
	}

	if p.IsFinished() {
		step.Finished = true
		step.ExtraTurns++
		s.PendingExtraTurns++
		if s.allPawnsFinished(player) && s.markFinished(player) {
			step.PlayerFinished = true
			step.MatchOver = s.CheckOver()
		}
	}
	return step, MoveOK
}

// resolveCapture 安全格不吃子; 对方两枚以上同格为阻挡; 否则吃掉ID最小的一枚
func (e *Engine) resolveCapture(s *MatchState, mover *Pawn, step *Step) {
	cell := mover.MainIndex()
	if e.board.IsSafe(cell) {
		return
	}
	enemies := lo.Filter(s.Pawns, func(p *Pawn, _ int) bool {
		return p.Owner() != mover.Owner() && p.IsOnMainPath() && p.MainIndex() == cell
	})
	switch {
	case len(enemies) >= 2:
		step.Blocked = true
	case len(enemies) == 1:
		victim := enemies[0]
		step.Captured = &Captured{PawnID: victim.ID(), Owner: victim.Owner(), From: victim.Position()}
		victim.sendHome()
		step.ExtraTurns++
		s.PendingExtraTurns++
	}
}

// GrantExtraTurn 消耗一次额外回合, 同一玩家继续掷骰
func (e *Engine) GrantExtraTurn(s *MatchState) bool {
	if s.PendingExtraTurns <= 0 || s.IsOut(s.Turn) {
		return false
	}
	s.PendingExtraTurns--
	s.startTurn(s.Turn)
	return true
}

// AdvanceTurn 轮到下一个在局玩家, 没有可选玩家时返回 -1 且不修改状态
func (e *Engine) AdvanceTurn(s *MatchState) int32 {
	next := s.NextActive()
	if next < 0 {
		return -1
	}
	s.PendingExtraTurns = 0
	s.startTurn(next)
	return next
}

func (s *MatchState) startTurn(player int32) {
	if player != s.Turn {
		s.ConsecutiveSixes = 0
	}
	s.Turn = player
	s.LastRoll = 0
	s.Phase = PhaseAwaitRoll
}
