package model

import "fmt"

// PawnZone 棋子所在区域
type PawnZone int32

const (
	ZoneHome     PawnZone = iota // 基地
	ZoneMainPath                 // 公共路径
	ZoneHomeLane                 // Home 路径
	ZoneFinished                 // 到达终点
)

func (z PawnZone) String() string {
	switch z {
	case ZoneHome:
		return "Home"
	case ZoneMainPath:
		return "MainPath"
	case ZoneHomeLane:
		return "HomeLane"
	case ZoneFinished:
		return "Finished"
	default:
		return fmt.Sprintf("PawnZone(%d)", int32(z))
	}
}

// Position 区域内坐标. Home 为 NoIndex, MainPath 为环上格子, HomeLane/Finished 为 Home 路径下标
type Position struct {
	Zone  PawnZone `json:"zone" msgpack:"z"`
	Index int32    `json:"index" msgpack:"i"`
}

func (p Position) String() string {
	return fmt.Sprintf("%v(%d)", p.Zone, p.Index)
}

// Pawn 棋子. 状态只能通过下面几种迁移修改
type Pawn struct {
	id        int32
	owner     int32
	zone      PawnZone
	mainIndex int32
	homeIndex int32
}

func NewPawn(id, owner int32) *Pawn {
	return &Pawn{id: id, owner: owner, zone: ZoneHome, mainIndex: NoIndex, homeIndex: NoIndex}
}

func (p *Pawn) ID() int32          { return p.id }
func (p *Pawn) Owner() int32       { return p.owner }
func (p *Pawn) Zone() PawnZone     { return p.zone }
func (p *Pawn) MainIndex() int32   { return p.mainIndex }
func (p *Pawn) HomeIndex() int32   { return p.homeIndex }
func (p *Pawn) IsFinished() bool   { return p.zone == ZoneFinished }
func (p *Pawn) IsOnMainPath() bool { return p.zone == ZoneMainPath }

// InHomeLane Home 路径内(含终点)
func (p *Pawn) InHomeLane() bool {
	return p.zone == ZoneHomeLane || p.zone == ZoneFinished
}

func (p *Pawn) Position() Position {
	switch p.zone {
	case ZoneMainPath:
		return Position{Zone: p.zone, Index: p.mainIndex}
	case ZoneHomeLane, ZoneFinished:
		return Position{Zone: p.zone, Index: p.homeIndex}
	default:
		return Position{Zone: ZoneHome, Index: NoIndex}
	}
}

func (p *Pawn) Desc() string {
	return fmt.Sprintf("[ID:%d owner:%d %v main:%d home:%d]", p.id, p.owner, p.zone, p.mainIndex, p.homeIndex)
}

func (p *Pawn) clone() *Pawn {
	cp := *p
	return &cp
}

// enterMain Home -> MainPath
func (p *Pawn) enterMain(cell int32) bool {
	if p.zone != ZoneHome {
		return false
	}
	p.zone, p.mainIndex, p.homeIndex = ZoneMainPath, cell, NoIndex
	return true
}

// moveMain MainPath -> MainPath
func (p *Pawn) moveMain(cell int32) bool {
	if p.zone != ZoneMainPath {
		return false
	}
	p.mainIndex = cell
	return true
}

// enterHomeLane MainPath -> HomeLane/Finished
func (p *Pawn) enterHomeLane(idx int32) bool {
	if p.zone != ZoneMainPath || idx < 0 || idx > FinishIndex {
		return false
	}
	p.zone, p.mainIndex, p.homeIndex = ZoneHomeLane, NoIndex, idx
	if idx == FinishIndex {
		p.zone = ZoneFinished
	}
	return true
}

// moveHome HomeLane -> HomeLane/Finished
func (p *Pawn) moveHome(idx int32) bool {
	if p.zone != ZoneHomeLane || idx <= p.homeIndex || idx > FinishIndex {
		return false
	}
	p.homeIndex = idx
	if idx == FinishIndex {
		p.zone = ZoneFinished
	}
	return true
}

// sendHome 被吃, 强制回基地
func (p *Pawn) sendHome() {
	p.zone, p.mainIndex, p.homeIndex = ZoneHome, NoIndex, NoIndex
}

// restore 按快照直接设置, 校验区域与坐标一致
func (p *Pawn) restore(zone PawnZone, mainIndex, homeIndex, ring int32) error {
	switch zone {
	case ZoneHome:
		mainIndex, homeIndex = NoIndex, NoIndex
	case ZoneMainPath:
		if mainIndex < 0 || mainIndex >= ring {
			return fmt.Errorf("pawn %d: main index %d out of range", p.id, mainIndex)
		}
		homeIndex = NoIndex
	case ZoneHomeLane:
		if homeIndex < 0 || homeIndex >= FinishIndex {
			return fmt.Errorf("pawn %d: home index %d out of range", p.id, homeIndex)
		}
		mainIndex = NoIndex
	case ZoneFinished:
		if homeIndex != FinishIndex {
			return fmt.Errorf("pawn %d: finished with home index %d", p.id, homeIndex)
		}
		mainIndex = NoIndex
	default:
		return fmt.Errorf("pawn %d: unknown zone %d", p.id, zone)
	}
	p.zone, p.mainIndex, p.homeIndex = zone, mainIndex, homeIndex
	return nil
}
