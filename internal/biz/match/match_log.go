package match

import (
	"fmt"

	"github.com/yola1107/ludo-arbiter/internal/model"
	"github.com/yola1107/ludo-arbiter/library/log/file"
	"github.com/yola1107/ludo-arbiter/library/xgo"
)

const (
	LogDirPath = "./logs/match/%s.log"
)

// Log 单局事件日志
type Log struct {
	open    bool
	matchID string
	logger  *file.Log
}

func NewMatchLog(matchID string, open bool) *Log {
	l := &Log{open: open, matchID: matchID}
	if open {
		l.logger = file.NewFileLog(fmt.Sprintf(LogDirPath, matchID))
	}
	return l
}

func (l *Log) Close() error {
	if l.logger == nil {
		return nil
	}
	return l.logger.Close()
}

// write 写入到对局日志文件
func (l *Log) write(msg string, args ...interface{}) {
	if !l.open || l.logger == nil {
		return
	}
	l.logger.WriteLog(msg, args...)
}

func (l *Log) begin(s *model.MatchState) {
	l.write("[开局] match=%s players=%d turn=%d", l.matchID, s.PlayerCount, s.Turn)
}

func (l *Log) stage(desc string) {
	l.write("[计时] %s", desc)
}

func (l *Log) roll(id int64, player int32, res model.RollResult) {
	l.write("[roll] id=%d p=%d dice=%d sixes=%d forfeit=%v extra=%v", id, player, res.Value, res.Sixes, res.Forfeit, res.ExtraTurn)
}

func (l *Log) move(id int64, step *model.Step) {
	l.write("[move] id=%d step=%s", id, xgo.ToJSON(step))
}

func (l *Log) turn(id int64, prev int32, s *model.MatchState) {
	l.write("[turn] id=%d %d -> %d %s", id, prev, s.Turn, s.Desc())
}

func (l *Log) sync(id int64, s *model.MatchState) {
	l.write("[sync] id=%d %s pawns=%s", id, s.Desc(), model.EncodePawns(s.Pawns))
}

func (l *Log) bot(player int32, on bool) {
	l.write("[托管] p=%d on=%v", player, on)
}

func (l *Log) leave(player int32, leaveOrder []int32) {
	l.write("[leave] p=%d leaveOrder=%v", player, leaveOrder)
}

func (l *Log) host(s *model.MatchState) {
	l.write("[host] take over. %s", s.Desc())
}

func (l *Log) watchdog(moveID int64) {
	l.write("[动画超时] moveID=%d", moveID)
}

func (l *Log) end(ranking []int32) {
	l.write("[结束] ranking=%v", ranking)
}
