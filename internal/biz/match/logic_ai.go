package match

import (
	"github.com/yola1107/ludo-arbiter/library/ext"
)

// pickPawn 托管时在可走棋子中等概率选一枚
func (m *Match) pickPawn(player int32) (int32, bool) {
	return ext.Pick(m.engine.LegalMoves(m.state, player, m.state.LastRoll))
}
