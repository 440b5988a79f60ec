package codes

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// 协议层拒绝原因. 非法请求只记录日志, 不改状态也不广播
var (
	ErrNotHost        = errors.New(400, "NOT_HOST", "not the host")
	ErrNotYourTurn    = errors.New(401, "NOT_YOUR_TURN", "not your turn")
	ErrWrongPhase     = errors.New(402, "WRONG_PHASE", "wrong phase")
	ErrIllegalMove    = errors.New(403, "ILLEGAL_MOVE", "illegal move")
	ErrRollMismatch   = errors.New(404, "ROLL_MISMATCH", "roll does not match the confirmed roll")
	ErrMatchOver      = errors.New(405, "MATCH_OVER", "match is over")
	ErrSeatMismatch   = errors.New(406, "SEAT_MISMATCH", "sender does not own the seat")
	ErrAnimating      = errors.New(407, "ANIMATING", "animation in flight")
	ErrNotStuck       = errors.New(408, "NOT_STUCK", "turn still has legal moves")
	ErrDuplicateFact  = errors.New(409, "DUPLICATE_FACT", "fact already applied")
	ErrForeignFact    = errors.New(410, "FOREIGN_FACT", "fact not sent by the host")
	ErrInvalidMessage = errors.New(411, "INVALID_MESSAGE", "invalid message")
	ErrNotStarted     = errors.New(412, "NOT_STARTED", "match not started")
)

// 中继层
var (
	ErrTokenInvalid = errors.New(420, "TOKEN_INVALID", "token invalid")
	ErrRateLimited  = errors.New(421, "RATE_LIMITED", "too many messages")
	ErrNotConnected = errors.New(422, "NOT_CONNECTED", "relay not connected")
	ErrNoHost       = errors.New(423, "NO_HOST", "match has no host")
)
