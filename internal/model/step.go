package model

// Step 一次移动的结果, Path 供表现层逐格播放
type Step struct {
	PawnID         int32      `json:"pawn" msgpack:"pawn"`
	Owner          int32      `json:"owner" msgpack:"owner"`
	Roll           int32      `json:"roll" msgpack:"roll"`
	From           Position   `json:"from" msgpack:"from"`
	To             Position   `json:"to" msgpack:"to"`
	Path           []Position `json:"path" msgpack:"path"`
	Captured       *Captured  `json:"captured,omitempty" msgpack:"captured,omitempty"`
	Blocked        bool       `json:"blocked,omitempty" msgpack:"blocked,omitempty"`
	Finished       bool       `json:"finished,omitempty" msgpack:"finished,omitempty"`
	PlayerFinished bool       `json:"playerFinished,omitempty" msgpack:"playerFinished,omitempty"`
	MatchOver      bool       `json:"over,omitempty" msgpack:"over,omitempty"`
	ExtraTurns     int32      `json:"extra,omitempty" msgpack:"extra,omitempty"` // 本次移动奖励的额外回合
}

// Captured 被吃的棋子
type Captured struct {
	PawnID int32    `json:"pawn" msgpack:"pawn"`
	Owner  int32    `json:"owner" msgpack:"owner"`
	From   Position `json:"from" msgpack:"from"`
}
